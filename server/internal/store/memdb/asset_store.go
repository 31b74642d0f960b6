package memdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedisam/assetd/server/internal/store"
)

type object struct {
	data    []byte
	modTime time.Time
}

// AssetStore keeps assets in memory. Writes are tracked as in-flight until their payload has
// been read in full and are only then published, mirroring the temp-file discipline of the
// filesystem store. It is used for the ephemeral storage mode and as a fake in tests.
type AssetStore struct {
	mu       sync.RWMutex
	assets   map[string]*object
	inflight map[string]string // write id -> key
}

func NewAssetStore() *AssetStore {
	return &AssetStore{
		assets:   make(map[string]*object),
		inflight: make(map[string]string),
	}
}

func (s *AssetStore) PutAsset(ctx context.Context, key string, r io.Reader) (int64, error) {
	if !store.ValidKey(key) {
		return 0, fmt.Errorf("%w: invalid key %q", store.ErrValidation, key)
	}

	writeID := uuid.NewString()
	s.mu.Lock()
	s.inflight[writeID] = key
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, writeID)
		s.mu.Unlock()
	}()

	buf := &bytes.Buffer{}
	written, err := io.Copy(buf, r)
	if err != nil {
		return 0, fmt.Errorf("%w: read payload: %w", store.ErrIOFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", store.ErrIOFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[key]; ok {
		return 0, fmt.Errorf("%w: %q", store.ErrKeyExists, key)
	}
	s.assets[key] = &object{
		data:    buf.Bytes(),
		modTime: time.Now().UTC(),
	}

	return written, nil
}

func (s *AssetStore) ListAssets(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Collect(maps.Keys(s.assets)), nil
}

func (s *AssetStore) OpenAsset(_ context.Context, key string) (store.AssetFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.assets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return &assetFile{
		Reader: bytes.NewReader(obj.data),
		info: fileInfo{
			name:    key,
			size:    int64(len(obj.data)),
			modTime: obj.modTime,
		},
	}, nil
}

// Inflight returns the number of writes that have started but not yet been published.
func (s *AssetStore) Inflight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inflight)
}

type assetFile struct {
	*bytes.Reader
	info fileInfo
}

func (f *assetFile) Close() error {
	return nil
}

func (f *assetFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }
