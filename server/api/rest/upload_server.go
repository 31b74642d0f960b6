package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/assetd/server/internal/store"
)

//go:generate moq -out mocks/asset_writer.go -pkg mocks -skip-ensure . AssetWriter
//go:generate moq -out mocks/key_generator.go -pkg mocks -skip-ensure . KeyGenerator

const (
	// UploadField is the multipart field file parts are read from.
	UploadField = "images"

	formOverhead = 1 << 20
)

type AssetWriter interface {
	PutAsset(ctx context.Context, key string, r io.Reader) (int64, error)
}

type KeyGenerator interface {
	Generate(hint string) string
}

type URLResolver interface {
	URLFor(key string) string
}

type AssetMetrics interface {
	AssetWritten(origin store.Origin)
	AssetWriteFailed(origin store.Origin)
	FetchFailed(reason string)
}

type UploadServer struct {
	logger      *logrus.Logger
	storage     AssetWriter
	keys        KeyGenerator
	urls        URLResolver
	metrics     AssetMetrics
	maxFiles    int
	maxFileSize int64
}

func NewUploadServer(logger *logrus.Logger, storage AssetWriter, keys KeyGenerator, urls URLResolver, metrics AssetMetrics, maxFiles int, maxFileSize int64) *UploadServer {
	return &UploadServer{
		logger:      logger,
		storage:     storage,
		keys:        keys,
		urls:        urls,
		metrics:     metrics,
		maxFiles:    maxFiles,
		maxFileSize: maxFileSize,
	}
}

type UploadedFile struct {
	OriginalName string       `json:"originalName"`
	Key          string       `json:"key,omitempty"`
	URL          string       `json:"url,omitempty"`
	Size         int64        `json:"size"`
	Origin       store.Origin `json:"origin"`
	Error        string       `json:"error,omitempty"`
}

type UploadResponse struct {
	Message string          `json:"message"`
	Files   []*UploadedFile `json:"files"`
}

type filePart struct {
	name string
	data []byte
}

// UploadMultiple stores every file part of a multipart request. The whole request is parsed and
// validated before the first write, so a rejected batch leaves the store untouched. Once writing
// starts each file succeeds or fails on its own.
func (s *UploadServer) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.WithContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, int64(s.maxFiles)*s.maxFileSize+formOverhead)

	parts, err := s.readParts(r)
	if err != nil {
		logger.WithError(err).Warn("Rejected multipart upload request")
		http.Error(w, err.Error(), StatusFor(err))
		return
	}
	if len(parts) == 0 {
		logger.Warn("No files in multipart upload request")
		http.Error(w, fmt.Sprintf("%s: at least one file is required under %q", store.ErrValidation, UploadField), http.StatusBadRequest)
		return
	}

	resp := &UploadResponse{
		Files: make([]*UploadedFile, 0, len(parts)),
	}
	var failed int
	for i := range parts {
		file := s.storeFile(ctx, &parts[i])
		if file.Error != "" {
			failed++
		}
		resp.Files = append(resp.Files, file)
	}

	status := http.StatusOK
	resp.Message = "Files uploaded successfully"
	switch {
	case failed == len(parts):
		status = http.StatusInternalServerError
		resp.Message = "Failed to upload files"
	case failed > 0:
		status = http.StatusMultiStatus
		resp.Message = "Some files failed to upload"
	}

	logger.WithFields(logrus.Fields{
		"files":  len(parts),
		"failed": failed,
	}).Info("Handled multipart upload")

	writeJSON(logger, w, status, resp)
}

func (s *UploadServer) storeFile(ctx context.Context, part *filePart) *UploadedFile {
	file := &UploadedFile{
		OriginalName: part.name,
		Origin:       store.OriginUploaded,
	}
	// the store owns the bytes from here on
	data := part.data
	part.data = nil

	key := s.keys.Generate(part.name)
	logger := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"key":           key,
		"original_name": part.name,
	})

	written, err := s.storage.PutAsset(ctx, key, bytes.NewReader(data))
	if err != nil {
		logger.WithError(err).Error("Failed to store uploaded file")
		s.metrics.AssetWriteFailed(store.OriginUploaded)
		file.Error = err.Error()
		return file
	}
	s.metrics.AssetWritten(store.OriginUploaded)
	logger.WithField("size", written).Debug("Stored uploaded file")

	file.Key = key
	file.URL = s.urls.URLFor(key)
	file.Size = written
	return file
}

func (s *UploadServer) readParts(r *http.Request) ([]filePart, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrValidation, err)
	}

	var parts []filePart
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return nil, classifyBodyErr("read multipart part", err)
		}

		if part.FormName() != UploadField || part.FileName() == "" {
			_, err = io.Copy(io.Discard, part)
			_ = part.Close()
			if err != nil {
				return nil, classifyBodyErr("skip multipart part", err)
			}
			continue
		}

		if len(parts) == s.maxFiles {
			_ = part.Close()
			return nil, fmt.Errorf("%w: at most %d files per request", store.ErrTooManyFiles, s.maxFiles)
		}

		data, err := io.ReadAll(io.LimitReader(part, s.maxFileSize+1))
		_ = part.Close()
		if err != nil {
			return nil, classifyBodyErr("read file part", err)
		}
		if int64(len(data)) > s.maxFileSize {
			return nil, fmt.Errorf("%w: %q exceeds %d bytes", store.ErrTooLarge, part.FileName(), s.maxFileSize)
		}

		parts = append(parts, filePart{name: part.FileName(), data: data})
	}
}

func classifyBodyErr(op string, err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("%w: request body exceeds %d bytes", store.ErrTooLarge, maxBytesErr.Limit)
	}
	return fmt.Errorf("%w: %s: %w", store.ErrValidation, op, err)
}
