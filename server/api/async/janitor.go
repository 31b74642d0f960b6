package async

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hedisam/assetd/lib/chans"
	"github.com/hedisam/assetd/server/internal/store"
)

type TempStorage interface {
	RemoveTemp(ctx context.Context, name string) error
}

// Janitor removes temp files that failed writes could not clean up themselves.
type Janitor struct {
	logger  *logrus.Logger
	storage TempStorage
	backoff func() backoff.BackOff
}

type Option func(j *Janitor)

// WithBackOff replaces the retry policy used for each removal.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(j *Janitor) {
		j.backoff = newBackOff
	}
}

func NewJanitor(logger *logrus.Logger, storage TempStorage, opts ...Option) *Janitor {
	j := &Janitor{
		logger:  logger,
		storage: storage,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithMaxElapsedTime(time.Second*3),
				backoff.WithMaxInterval(time.Second),
				backoff.WithInitialInterval(time.Millisecond*100),
				backoff.WithMultiplier(2),
				backoff.WithRandomizationFactor(0.2),
			)
		},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run consumes orphans until ctx is done or in is closed.
func (j *Janitor) Run(ctx context.Context, in <-chan *store.Orphan) {
	j.logger.WithContext(ctx).Info("Running Janitor")

	for orphan := range chans.ReceiveOrDoneSeq(ctx, in) {
		j.cleanup(ctx, orphan)
	}

	j.logger.WithContext(ctx).Info("Janitor stopped")
}

func (j *Janitor) cleanup(ctx context.Context, orphan *store.Orphan) {
	ctx, span := otel.Tracer("").Start(ctx, "janitor")
	defer span.End()
	span.SetAttributes(attribute.String("orphan.name", orphan.Name))

	logger := j.logger.WithContext(ctx).WithFields(logrus.Fields{
		"name":        orphan.Name,
		"detected_at": orphan.DetectedAt,
	})
	logger.Debug("Cleaning up orphaned temp file")

	err := backoff.Retry(func() error {
		err := j.storage.RemoveTemp(ctx, orphan.Name)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, store.ErrValidation) {
				// cancelled runs are picked up again by the start-up sweep
				return backoff.Permanent(err)
			}
			logger.WithError(err).Warn("Failed to remove orphaned temp file, retrying")
			return err
		}

		return nil
	}, backoff.WithContext(j.backoff(), ctx))
	if err != nil {
		logger.WithError(err).Error("Failed to clean up orphaned temp file in janitor")
		return
	}

	logger.Debug("Removed orphaned temp file")
}
