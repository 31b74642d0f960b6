package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/assetd/server/internal/fetcher"
	"github.com/hedisam/assetd/server/internal/store"
)

//go:generate moq -out mocks/remote_fetcher.go -pkg mocks -skip-ensure . RemoteFetcher

type RemoteFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error)
}

// FetchServer ingests images from remote URLs.
type FetchServer struct {
	logger  *logrus.Logger
	fetcher RemoteFetcher
	storage AssetWriter
	keys    KeyGenerator
	urls    URLResolver
	metrics AssetMetrics
	hint    string
}

func NewFetchServer(logger *logrus.Logger, f RemoteFetcher, storage AssetWriter, keys KeyGenerator, urls URLResolver, metrics AssetMetrics, hint string) *FetchServer {
	return &FetchServer{
		logger:  logger,
		fetcher: f,
		storage: storage,
		keys:    keys,
		urls:    urls,
		metrics: metrics,
		hint:    hint,
	}
}

type FetchRequest struct {
	ImageURL string `json:"imageUrl"`
}

type FetchResponse struct {
	Message string `json:"message"`
	File    string `json:"file"`
	URL     string `json:"url"`
}

// UploadFromURL downloads the image at req.ImageURL and stores it. Nothing is written unless the
// whole body was fetched.
func (s *FetchServer) UploadFromURL(ctx context.Context, req *FetchRequest) (*FetchResponse, error) {
	logger := s.logger.WithContext(ctx).WithField("image_url", req.ImageURL)

	u, err := fetcher.ParseURL(req.ImageURL)
	if err != nil {
		logger.WithError(err).Warn("Invalid image url in fetch request")
		return nil, NewErrf(http.StatusBadRequest, "%s", err.Error())
	}
	logger = logger.WithField("image_url", u.Redacted())

	result, err := s.fetcher.Fetch(ctx, u.String())
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch remote image")
		if errors.Is(err, store.ErrFetchFailed) {
			s.metrics.FetchFailed(fetchFailureReason(err))
		}
		return nil, NewErrf(StatusFor(err), "%s", err.Error())
	}

	key := s.keys.Generate(s.hint + result.Extension())
	logger = logger.WithField("key", key)

	written, err := s.storage.PutAsset(ctx, key, bytes.NewReader(result.Body))
	if err != nil {
		logger.WithError(err).Error("Failed to store fetched image")
		s.metrics.AssetWriteFailed(store.OriginFetched)
		return nil, fmt.Errorf("could not store fetched image: %w", err)
	}
	s.metrics.AssetWritten(store.OriginFetched)
	logger.WithField("size", written).Info("Stored fetched image")

	return &FetchResponse{
		Message: "Dog image saved",
		File:    key,
		URL:     s.urls.URLFor(key),
	}, nil
}

func fetchFailureReason(err error) string {
	switch {
	case errors.Is(err, fetcher.ErrStatus):
		return "status"
	case errors.Is(err, fetcher.ErrTooLarge):
		return "too_large"
	case errors.Is(err, fetcher.ErrForbiddenAddress):
		return "forbidden_address"
	case errors.Is(err, fetcher.ErrRedirect):
		return "redirect"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "network"
	}
}
