package memdb_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/assetd/server/internal/store"
	"github.com/hedisam/assetd/server/internal/store/memdb"
)

// blockingReader hands out one chunk and then blocks until released, so a test can observe
// the store while a write is in progress.
type blockingReader struct {
	first   []byte
	started chan struct{}
	release chan struct{}
	sent    bool
}

func (r *blockingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		close(r.started)
		return copy(p, r.first), nil
	}
	<-r.release
	return 0, io.EOF
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestPutAsset(t *testing.T) {
	t.Run("publish and read back", func(t *testing.T) {
		s := memdb.NewAssetStore()
		written, err := s.PutAsset(context.Background(), "1-a.jpg", strings.NewReader("hello"))
		require.NoError(t, err)
		assert.EqualValues(t, 5, written)

		f, err := s.OpenAsset(context.Background(), "1-a.jpg")
		require.NoError(t, err)
		content, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))

		st, err := f.Stat()
		require.NoError(t, err)
		assert.Equal(t, "1-a.jpg", st.Name())
		assert.EqualValues(t, 5, st.Size())
	})

	t.Run("in-flight writes are invisible", func(t *testing.T) {
		s := memdb.NewAssetStore()
		r := &blockingReader{
			first:   []byte("part"),
			started: make(chan struct{}),
			release: make(chan struct{}),
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.PutAsset(context.Background(), "1-slow.jpg", r)
			assert.NoError(t, err)
		}()

		<-r.started
		keys, err := s.ListAssets(context.Background())
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.Equal(t, 1, s.Inflight())
		_, err = s.OpenAsset(context.Background(), "1-slow.jpg")
		assert.ErrorIs(t, err, store.ErrNotFound)

		close(r.release)
		wg.Wait()

		keys, err = s.ListAssets(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"1-slow.jpg"}, keys)
		assert.Zero(t, s.Inflight())
	})

	t.Run("failed read publishes nothing", func(t *testing.T) {
		s := memdb.NewAssetStore()
		_, err := s.PutAsset(context.Background(), "1-a.jpg", failingReader{})
		require.ErrorIs(t, err, store.ErrIOFailure)

		keys, err := s.ListAssets(context.Background())
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.Zero(t, s.Inflight())
	})

	t.Run("existing key is kept", func(t *testing.T) {
		s := memdb.NewAssetStore()
		_, err := s.PutAsset(context.Background(), "1-a.jpg", strings.NewReader("first"))
		require.NoError(t, err)
		_, err = s.PutAsset(context.Background(), "1-a.jpg", strings.NewReader("second"))
		require.ErrorIs(t, err, store.ErrKeyExists)

		f, err := s.OpenAsset(context.Background(), "1-a.jpg")
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		assert.Equal(t, "first", string(content))
	})

	t.Run("invalid key", func(t *testing.T) {
		s := memdb.NewAssetStore()
		_, err := s.PutAsset(context.Background(), ".tmp-x", strings.NewReader("x"))
		require.ErrorIs(t, err, store.ErrValidation)
	})
}
