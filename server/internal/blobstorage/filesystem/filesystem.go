package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hedisam/assetd/server/internal/store"
)

type Emitter interface {
	Emit(ctx context.Context, orphan *store.Orphan) error
}

// FileSystem is a flat, directory-backed asset store. Every write lands in a hidden temp file
// first and is hard-linked under its key only once the payload is complete, so listers and
// readers never see partial assets.
type FileSystem struct {
	logger  *logrus.Logger
	dir     *os.Root
	emitter Emitter
}

func New(logger *logrus.Logger, rootDir string, e Emitter) (*FileSystem, error) {
	logger.WithField("root_dir", rootDir).Info("Getting directory-limited filesystem access")

	err := os.MkdirAll(rootDir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("create root dir: %w", err)
	}

	dir, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("open root dir: %w", err)
	}

	return &FileSystem{
		logger:  logger,
		dir:     dir,
		emitter: e,
	}, nil
}

// PutAsset streams r into the store under key and returns the number of bytes written.
// The asset becomes visible atomically; an existing key is never overwritten.
func (fs *FileSystem) PutAsset(ctx context.Context, key string, r io.Reader) (written int64, err error) {
	ctx, span := otel.Tracer("").Start(ctx, "filesystem.PutAsset")
	defer span.End()
	span.SetAttributes(attribute.String("asset.key", key))

	logger := fs.logger.WithContext(ctx).WithField("key", key)

	if !store.ValidKey(key) {
		return 0, fmt.Errorf("%w: invalid key %q", store.ErrValidation, key)
	}

	tmpName := store.TempPrefix + uuid.NewString()
	f, err := fs.dir.OpenFile(tmpName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		logger.WithError(err).Error("Could not create temp file when putting asset in filesystem")
		return 0, fmt.Errorf("%w: create temp file: %w", store.ErrIOFailure, err)
	}

	// the temp name goes away on every path; after a successful link only the key remains
	defer fs.discardTemp(ctx, tmpName)

	written, err = io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		logger.WithError(err).Error("Could not write to temp file when putting asset in filesystem")
		return 0, fmt.Errorf("%w: write to temp file: %w", store.ErrIOFailure, err)
	}
	err = f.Sync()
	if err != nil {
		_ = f.Close()
		logger.WithError(err).Error("Could not sync temp file when putting asset in filesystem")
		return 0, fmt.Errorf("%w: sync temp file: %w", store.ErrIOFailure, err)
	}
	err = f.Close()
	if err != nil {
		logger.WithError(err).Error("Could not close temp file when putting asset in filesystem")
		return 0, fmt.Errorf("%w: close temp file: %w", store.ErrIOFailure, err)
	}

	// link fails with EEXIST instead of replacing, so an existing key is never overwritten
	err = fs.dir.Link(tmpName, key)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			logger.Warn("Asset key already exists in filesystem, refusing to overwrite")
			return 0, fmt.Errorf("%w: %q", store.ErrKeyExists, key)
		}
		logger.WithError(err).Error("Could not publish temp file when putting asset in filesystem")
		return 0, fmt.Errorf("%w: link temp file: %w", store.ErrIOFailure, err)
	}

	logger.WithField("written", written).Debug("Asset stored in filesystem")

	return written, nil
}

// ListAssets returns the keys of all published assets. Temp files, dot files, directories and
// anything else that is not a regular file are skipped.
func (fs *FileSystem) ListAssets(ctx context.Context) ([]string, error) {
	d, err := fs.dir.Open(".")
	if err != nil {
		fs.logger.WithContext(ctx).WithError(err).Error("Could not open root dir for listing")
		return nil, fmt.Errorf("%w: open root dir: %w", store.ErrIOFailure, err)
	}
	defer d.Close()

	entries, err := d.ReadDir(-1)
	if err != nil {
		fs.logger.WithContext(ctx).WithError(err).Error("Could not read root dir for listing")
		return nil, fmt.Errorf("%w: read root dir: %w", store.ErrIOFailure, err)
	}

	keys := make([]string, 0, len(entries))
	for entry := range slices.Values(entries) {
		if !entry.Type().IsRegular() || store.IsHidden(entry.Name()) {
			continue
		}
		keys = append(keys, entry.Name())
	}

	return keys, nil
}

// OpenAsset opens a published asset for reading.
func (fs *FileSystem) OpenAsset(ctx context.Context, key string) (store.AssetFile, error) {
	if !store.ValidKey(key) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	f, err := fs.dir.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
		}
		fs.logger.WithContext(ctx).WithError(err).WithField("key", key).Error("Could not open asset file")
		return nil, fmt.Errorf("%w: open asset file: %w", store.ErrIOFailure, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat asset file: %w", store.ErrIOFailure, err)
	}
	if !st.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return f, nil
}

// RemoveTemp deletes a leftover temp file. Removing a file that is already gone is not an error.
func (fs *FileSystem) RemoveTemp(ctx context.Context, name string) error {
	logger := fs.logger.WithContext(ctx).WithField("name", name)

	if !strings.HasPrefix(name, store.TempPrefix) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: not a temp file name %q", store.ErrValidation, name)
	}

	err := fs.dir.Remove(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		logger.WithError(err).Error("Could not remove temp file from filesystem")
		return fmt.Errorf("%w: remove temp file: %w", store.ErrIOFailure, err)
	}

	return nil
}

// SweepTemp queues every temp file older than minAge for removal. It is meant to run at start-up
// to pick up writes interrupted by a crash; minAge keeps it away from writes still in flight.
func (fs *FileSystem) SweepTemp(ctx context.Context, minAge time.Duration) (int, error) {
	d, err := fs.dir.Open(".")
	if err != nil {
		return 0, fmt.Errorf("%w: open root dir: %w", store.ErrIOFailure, err)
	}
	defer d.Close()

	entries, err := d.ReadDir(-1)
	if err != nil {
		return 0, fmt.Errorf("%w: read root dir: %w", store.ErrIOFailure, err)
	}

	now := time.Now()
	var queued int
	for entry := range slices.Values(entries) {
		if !strings.HasPrefix(entry.Name(), store.TempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return queued, fmt.Errorf("%w: stat temp file: %w", store.ErrIOFailure, err)
		}
		if now.Sub(info.ModTime()) < minAge {
			continue
		}

		err = fs.emitter.Emit(ctx, &store.Orphan{Name: entry.Name(), DetectedAt: now})
		if err != nil {
			return queued, fmt.Errorf("queue temp file for removal: %w", err)
		}
		queued++
	}

	return queued, nil
}

func (fs *FileSystem) Close() error {
	return fs.dir.Close()
}

func (fs *FileSystem) discardTemp(ctx context.Context, tmpName string) {
	err := fs.dir.Remove(tmpName)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return
	}

	logger := fs.logger.WithContext(ctx).WithField("name", tmpName)
	logger.WithError(err).Warn("Could not discard temp file, handing it over to the janitor")

	// the request context may already be done; the orphan must still be queued
	emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	err = fs.emitter.Emit(emitCtx, &store.Orphan{Name: tmpName, DetectedAt: time.Now()})
	if err != nil {
		logger.WithError(err).Error("Could not queue orphaned temp file for removal")
	}
}
