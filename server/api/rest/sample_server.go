package rest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/assetd/server/internal/sampler"
)

//go:generate moq -out mocks/asset_lister.go -pkg mocks -skip-ensure . AssetLister

type AssetLister interface {
	ListAssets(ctx context.Context) ([]string, error)
}

// SampleServer returns random subsets of the stored assets.
type SampleServer struct {
	logger  *logrus.Logger
	storage AssetLister
	sampler *sampler.Sampler
	urls    URLResolver
	size    int
}

func NewSampleServer(logger *logrus.Logger, storage AssetLister, s *sampler.Sampler, urls URLResolver, size int) *SampleServer {
	return &SampleServer{
		logger:  logger,
		storage: storage,
		sampler: s,
		urls:    urls,
		size:    size,
	}
}

type RandomImagesRequest struct{}

// RandomImages lists the store on every call and returns the URLs of up to size distinct assets.
func (s *SampleServer) RandomImages(ctx context.Context, _ *RandomImagesRequest) (*[]string, error) {
	logger := s.logger.WithContext(ctx)

	keys, err := s.storage.ListAssets(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to list assets for sampling")
		return nil, fmt.Errorf("could not list assets: %w", err)
	}

	picked := sampler.Sample(s.sampler, keys, s.size)
	urls := make([]string, 0, len(picked))
	for _, key := range picked {
		urls = append(urls, s.urls.URLFor(key))
	}

	logger.WithFields(logrus.Fields{
		"population": len(keys),
		"sampled":    len(urls),
	}).Debug("Sampled assets")

	return &urls, nil
}
