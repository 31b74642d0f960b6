package rest_test

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/assetd/server/api/rest"
	"github.com/hedisam/assetd/server/internal/blobstorage/filesystem"
	"github.com/hedisam/assetd/server/internal/emitter"
	"github.com/hedisam/assetd/server/internal/naming"
	"github.com/hedisam/assetd/server/internal/sampler"
)

// newAssetMux wires the asset endpoints over a directory-backed store the same way the server does.
func newAssetMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := logrus.New()

	e := emitter.New(8)
	t.Cleanup(e.Close)
	assets, err := filesystem.New(logger, t.TempDir(), e)
	require.NoError(t, err)
	t.Cleanup(func() { _ = assets.Close() })

	urls := newURLResolver(t)
	keys := naming.New()
	uploadServer := rest.NewUploadServer(logger, assets, keys, urls, newMetrics(), 10, 1<<20)
	sampleServer := rest.NewSampleServer(logger, assets, sampler.New(rand.NewPCG(7, 11)), urls, 3)
	staticServer := rest.NewStaticServer(logger, assets)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload-multiple", uploadServer.UploadMultiple)
	rest.RegisterFunc(logger, mux, http.MethodGet, "/api/random-images", sampleServer.RandomImages)
	mux.HandleFunc("GET /{key}", staticServer.ServeAsset)
	return mux
}

func sample(t *testing.T, mux http.Handler) []string {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/random-images", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var urls []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &urls))
	require.NotNil(t, urls, "an empty sample must be [] not null")
	return urls
}

func upload(t *testing.T, mux http.Handler, names ...string) []*rest.UploadedFile {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, multipartRequest(t, imageFiles(names...), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp rest.UploadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Files, len(names))
	return resp.Files
}

func get(t *testing.T, mux http.Handler, assetURL string) string {
	t.Helper()
	path := strings.TrimPrefix(assetURL, testBaseURL)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code, assetURL)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestUploadSampleServeScenario(t *testing.T) {
	mux := newAssetMux(t)

	assert.Empty(t, sample(t, mux))

	files := upload(t, mux, "a.jpg", "b.jpg")
	assert.NotEqual(t, files[0].Key, files[1].Key)
	for _, f := range files {
		assert.Equal(t, "bytes of "+f.OriginalName, get(t, mux, f.URL))
		assert.Equal(t, "bytes of "+f.OriginalName, get(t, mux, f.URL), "second read must be identical")
	}

	assert.ElementsMatch(t, []string{files[0].URL, files[1].URL}, sample(t, mux))

	files = append(files, upload(t, mux, "c.jpg", "d.jpg")...)

	counts := make(map[string]int)
	const trials = 1000
	for range trials {
		urls := sample(t, mux)
		require.Len(t, urls, 3)
		for _, u := range urls {
			counts[u]++
		}
	}

	require.Len(t, counts, 4)
	for _, f := range files {
		// each asset is in a 3-of-4 sample with probability 3/4
		assert.InDelta(t, 750, counts[f.URL], 75, f.URL)
	}
}
