package store

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"time"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrTooManyFiles = errors.New("too many files")
	ErrTooLarge     = errors.New("payload too large")
	ErrInvalidURL   = errors.New("invalid url")
	ErrFetchFailed  = errors.New("fetch failed")
	ErrIOFailure    = errors.New("io failure")
	ErrNotFound     = errors.New("not found")
	ErrKeyExists    = errors.New("key already exists")
)

// TempPrefix marks in-progress writes. Names starting with a dot are never listed or served.
const TempPrefix = ".tmp-"

// Origin records how an asset entered the store.
type Origin string

const (
	OriginUploaded Origin = "uploaded"
	OriginFetched  Origin = "fetched"
)

type Asset struct {
	Key       string
	Origin    Origin
	Size      int64
	CreatedAt time.Time
}

// AssetFile is a read handle on a stored asset.
type AssetFile interface {
	io.ReadSeekCloser
	Stat() (fs.FileInfo, error)
}

// Orphan is a temporary file left behind by a write that could not clean up after itself.
type Orphan struct {
	Name       string
	DetectedAt time.Time
}

// IsHidden reports whether name refers to a temp file or any other dot file.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ValidKey reports whether key can address a published asset: a single, non-hidden path segment.
func ValidKey(key string) bool {
	if key == "" || IsHidden(key) {
		return false
	}
	return !strings.ContainsAny(key, `/\`)
}
