package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benasque-conf/participants/internal/photos"
	"github.com/benasque-conf/participants/pkg/queue"
)

// JobSource is the queue side the processor needs. *queue.Queue implements it.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// PhotoCleanupProcessor deletes photos that the server could not or did not delete inline.
type PhotoCleanupProcessor struct {
	store   photos.Store
	queue   JobSource
	logger  *zap.Logger
	backoff time.Duration
}

// NewPhotoCleanupProcessor creates a photo cleanup processor.
func NewPhotoCleanupProcessor(store photos.Store, q JobSource, logger *zap.Logger) *PhotoCleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotoCleanupProcessor{store: store, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one photo cleanup job.
func (p *PhotoCleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypePhotoCleanup {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.PhotoCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.Ref == "" {
		return nil
	}
	if err := p.store.Delete(ctx, payload.Ref); err != nil {
		return fmt.Errorf("delete %s: %w", payload.Ref, err)
	}
	p.logger.Info("photo removed", zap.String("ref", payload.Ref), zap.String("reason", payload.Reason))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *PhotoCleanupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("photo cleanup worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *PhotoCleanupProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
