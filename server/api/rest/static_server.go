package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/assetd/server/internal/store"
)

//go:generate moq -out mocks/asset_opener.go -pkg mocks -skip-ensure . AssetOpener

type AssetOpener interface {
	OpenAsset(ctx context.Context, key string) (store.AssetFile, error)
}

// StaticServer serves stored assets by key, read-only and without directory listings.
type StaticServer struct {
	logger  *logrus.Logger
	storage AssetOpener
}

func NewStaticServer(logger *logrus.Logger, storage AssetOpener) *StaticServer {
	return &StaticServer{
		logger:  logger,
		storage: storage,
	}
}

// ServeAsset expects the key in the {key} path value.
func (s *StaticServer) ServeAsset(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	logger := s.logger.WithContext(r.Context()).WithField("key", key)

	f, err := s.storage.OpenAsset(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.WithError(err).Error("Failed to open asset")
		http.Error(w, "could not open asset", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.WithError(err).Error("Failed to stat asset")
		http.Error(w, "could not stat asset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	// uploaded svg or html must not run script under this origin
	w.Header().Set("Content-Security-Policy", "sandbox")
	http.ServeContent(w, r, key, info.ModTime(), f)
}

// Root answers the liveness check on "/".
func (s *StaticServer) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := fmt.Fprint(w, "Backend server running!")
	if err != nil {
		s.logger.WithError(err).Debug("Failed to write root response")
	}
}
