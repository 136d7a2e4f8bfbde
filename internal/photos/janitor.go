package photos

import (
	"context"

	"go.uber.org/zap"

	"github.com/benasque-conf/participants/pkg/queue"
)

// Enqueuer schedules background photo cleanup. *queue.Queue implements it.
type Enqueuer interface {
	EnqueuePhotoCleanup(ctx context.Context, payload queue.PhotoCleanupPayload) error
}

// Janitor removes photos that are no longer referenced. Failed removals are handed to the
// background worker when a queue is configured; otherwise they are only logged.
type Janitor struct {
	store  Store
	queue  Enqueuer
	logger *zap.Logger
}

// NewJanitor creates a janitor. q may be nil.
func NewJanitor(store Store, q Enqueuer, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{store: store, queue: q, logger: logger}
}

// Remove deletes ref now, falling back to a queued retry.
func (j *Janitor) Remove(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	err := j.store.Delete(ctx, ref)
	if err == nil {
		return
	}
	j.logger.Warn("photo delete failed", zap.String("ref", ref), zap.Error(err))
	j.enqueue(ctx, ref, "deleted")
}

// Discard schedules removal of a replaced photo, deleting inline when no queue is configured.
func (j *Janitor) Discard(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if j.queue == nil {
		if err := j.store.Delete(ctx, ref); err != nil {
			j.logger.Warn("replaced photo delete failed", zap.String("ref", ref), zap.Error(err))
		}
		return
	}
	j.enqueue(ctx, ref, "replaced")
}

func (j *Janitor) enqueue(ctx context.Context, ref, reason string) {
	if j.queue == nil {
		return
	}
	if err := j.queue.EnqueuePhotoCleanup(ctx, queue.PhotoCleanupPayload{Ref: ref, Reason: reason}); err != nil {
		j.logger.Error("enqueue photo cleanup failed", zap.String("ref", ref), zap.Error(err))
	}
}
