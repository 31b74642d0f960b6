package rest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/assetd/server/api/rest"
	"github.com/hedisam/assetd/server/api/rest/mocks"
	"github.com/hedisam/assetd/server/internal/store"
	"github.com/hedisam/assetd/server/internal/store/memdb"
)

func newStaticMux(opener rest.AssetOpener) *http.ServeMux {
	srv := rest.NewStaticServer(logrus.New(), opener)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{key}", srv.ServeAsset)
	mux.HandleFunc("GET /{$}", srv.Root)
	return mux
}

func TestServeAsset(t *testing.T) {
	assets := memdb.NewAssetStore()
	_, err := assets.PutAsset(context.Background(), "1-a.png", strings.NewReader("\x89PNG\r\n\x1a\nrest of the image"))
	require.NoError(t, err)
	mux := newStaticMux(assets)

	t.Run("reads are byte identical", func(t *testing.T) {
		var bodies []string
		for range 2 {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/1-a.png", nil))
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
			bodies = append(bodies, rr.Body.String())
		}
		assert.Equal(t, "\x89PNG\r\n\x1a\nrest of the image", bodies[0])
		assert.Equal(t, bodies[0], bodies[1])
	})

	t.Run("stored content cannot run script", func(t *testing.T) {
		_, err := assets.PutAsset(context.Background(), "2-x.svg", strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`))
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/2-x.svg", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "sandbox", rr.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	})

	t.Run("range request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/1-a.png", nil)
		req.Header.Set("Range", "bytes=0-3")
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusPartialContent, rr.Code)
		assert.Equal(t, "\x89PNG", rr.Body.String())
	})

	t.Run("missing key", func(t *testing.T) {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/2-missing.png", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("root answers liveness", func(t *testing.T) {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Backend server running!", rr.Body.String())
	})
}

func TestServeAssetOpenErrors(t *testing.T) {
	tests := map[string]struct {
		openErr    error
		wantStatus int
	}{
		"not found":  {openErr: fmt.Errorf("%w: %q", store.ErrNotFound, ".tmp-x"), wantStatus: http.StatusNotFound},
		"io failure": {openErr: fmt.Errorf("%w: open: %w", store.ErrIOFailure, errors.New("EIO")), wantStatus: http.StatusInternalServerError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			openerMock := &mocks.AssetOpenerMock{
				OpenAssetFunc: func(context.Context, string) (store.AssetFile, error) {
					return nil, tc.openErr
				},
			}
			rr := httptest.NewRecorder()
			newStaticMux(openerMock).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/key.jpg", nil))

			assert.Equal(t, tc.wantStatus, rr.Code)
			require.Len(t, openerMock.OpenAssetCalls(), 1)
			assert.Equal(t, "key.jpg", openerMock.OpenAssetCalls()[0].Key)
			body, err := io.ReadAll(rr.Body)
			require.NoError(t, err)
			assert.NotContains(t, string(body), "EIO")
		})
	}
}
