package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/analyzer"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/cache"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/guidance"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/queue"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/storage"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/tracing"
	"github.com/therealutkarshpriyadarshi/emergencyprep/pkg/models"
)

// Locker guards a job against concurrent redelivery
type Locker interface {
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (*cache.Lock, error)
	ReleaseLock(ctx context.Context, lock *cache.Lock) error
}

// BlobStore holds the uploaded videos
type BlobStore interface {
	Bucket() string
	DownloadFile(ctx context.Context, key, filePath string) error
	Delete(ctx context.Context, key string) error
}

// Analyzer runs one analysis
type Analyzer interface {
	Run(ctx context.Context, path string) (*models.Analysis, error)
}

// Notifier delivers the analysis to the job's callback
type Notifier interface {
	NotifyAnalysis(ctx context.Context, job *models.AnalysisJob, analysis *models.Analysis) (*models.WebhookDelivery, error)
}

// Processor handles analysis jobs taken off the queue. A nil locker
// disables locking and a nil analyzer reports every analysis as disabled.
type Processor struct {
	locker   Locker
	store    BlobStore
	analyzer Analyzer
	notifier Notifier
	tempDir  string
	lockTTL  time.Duration
	logger   *logging.Logger
}

// Handle runs one job. Errors wrapped with queue.Permanent go straight
// to the dead letter queue; others are retried.
func (p *Processor) Handle(ctx context.Context, job *models.AnalysisJob) error {
	span, ctx := tracing.StartSpan(ctx, tracing.SpanJob)
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "job.id", job.ID)
	tracing.SetTag(span, "job.attempt", job.Attempt)

	logger := p.logger.WithJobID(job.ID)

	if !storage.ValidKey(job.VideoKey) {
		return queue.Permanent(fmt.Errorf("invalid video key %q", job.VideoKey))
	}

	if p.locker != nil {
		lock, err := p.locker.AcquireLock(ctx, "job:"+job.ID, p.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock job: %w", err)
		}
		if lock == nil {
			// another worker holds this delivery
			logger.Warn("Job already being processed, skipping")
			return nil
		}
		defer func() {
			if err := p.locker.ReleaseLock(context.Background(), lock); err != nil {
				logger.WithError(err).Warn("Failed to release job lock")
			}
		}()
	}

	logger.LogJobEvent(job.ID, "started", "processing", map[string]interface{}{
		"attempt":   job.Attempt,
		"video_key": job.VideoKey,
	})

	analysis, err := p.analyze(ctx, job)
	if err != nil {
		tracing.LogError(span, err)
		return err
	}
	analysis.Guidance = guidance.Render(analysis.Result, job.Context)

	delivery, err := p.notifier.NotifyAnalysis(ctx, job, analysis)
	if err != nil {
		tracing.LogError(span, err)
		return fmt.Errorf("failed to deliver result: %w", err)
	}

	// the video is only kept until its result has been delivered
	start := time.Now()
	err = p.store.Delete(ctx, job.VideoKey)
	logger.LogStorageOperation("delete", p.store.Bucket(), job.VideoKey, 0, time.Since(start), err)

	logger.LogJobEvent(job.ID, "completed", analysis.Status, map[string]interface{}{
		"analysis_id": analysis.ID,
		"delivery_id": delivery.ID,
		"retries":     delivery.RetryCount,
	})
	return nil
}

func (p *Processor) analyze(ctx context.Context, job *models.AnalysisJob) (*models.Analysis, error) {
	if p.analyzer == nil {
		return analyzer.Disabled(), nil
	}

	dir, err := os.MkdirTemp(p.tempDir, "job-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(job.VideoKey))
	start := time.Now()
	err = p.store.DownloadFile(ctx, job.VideoKey, path)
	var size int64
	if info, serr := os.Stat(path); err == nil && serr == nil {
		size = info.Size()
	}
	p.logger.WithJobID(job.ID).LogStorageOperation("download", p.store.Bucket(), job.VideoKey, size, time.Since(start), err)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, queue.Permanent(err)
		}
		return nil, err
	}

	analysis, err := p.analyzer.Run(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	return analysis, nil
}
