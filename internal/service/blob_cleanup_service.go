package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ems-docs-api/pkg/jobs"
)

const blobCleanupJobType = "blob.delete"

type blobDeleter interface {
	Delete(ctx context.Context, key string) error
}

type blobCleanupMetrics interface {
	RecordBlobCleanup(err error)
}

// BlobCleanupConfig tunes the cleanup worker pool.
type BlobCleanupConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// BlobCleanupService deletes stored objects after their rows are gone, off the request path.
type BlobCleanupService struct {
	queue  *jobs.Queue
	store  blobDeleter
	logger *zap.Logger
}

// NewBlobCleanupService wires a queue whose handler deletes one object per job.
func NewBlobCleanupService(store blobDeleter, metrics blobCleanupMetrics, cfg BlobCleanupConfig, logger *zap.Logger) *BlobCleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &BlobCleanupService{store: store, logger: logger}
	svc.queue = jobs.NewQueue("blob-cleanup", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDone: func(job jobs.Job, err error) {
			if metrics != nil {
				metrics.RecordBlobCleanup(err)
			}
		},
	})
	return svc
}

// Start launches the workers.
func (s *BlobCleanupService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains queued deletions and waits for workers.
func (s *BlobCleanupService) Stop() {
	s.queue.Stop()
}

// Schedule enqueues deletion of the given keys. Enqueue failures are logged only.
func (s *BlobCleanupService) Schedule(keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		job := jobs.Job{ID: uuid.NewString(), Type: blobCleanupJobType, Payload: key}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to schedule blob cleanup", zap.String("key", key), zap.Error(err))
		}
	}
}

// Stats exposes queue counters.
func (s *BlobCleanupService) Stats() jobs.Stats {
	return s.queue.Stats()
}

func (s *BlobCleanupService) handle(ctx context.Context, job jobs.Job) error {
	return s.store.Delete(ctx, job.Payload)
}
