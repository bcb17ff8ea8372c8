package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// CleanupJob prunes idempotency keys old enough that a replay would no
// longer be a mistake worth blocking.
type CleanupJob struct {
	store  *shared.IdempotencyStore
	logger *slog.Logger
}

// NewCleanupJob constructs the cleanup job.
func NewCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{store: store, logger: logger}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	maxAge := time.Duration(payload.MaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 72 * time.Hour
	}
	if err := j.store.Cleanup(ctx, maxAge); err != nil {
		if j.logger != nil {
			j.logger.Error("idempotency cleanup", slog.Any("error", err))
		}
		return err
	}
	if j.logger != nil {
		j.logger.Info("idempotency cleanup complete", slog.Duration("max_age", maxAge))
	}
	return nil
}
