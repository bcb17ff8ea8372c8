package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatsRollup recomputes the daily check-in stats rollup.
	TaskStatsRollup = "stats:rollup"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// StatsRollupPayload bounds the rollup to the most recent days.
type StatsRollupPayload struct {
	Days int `json:"days"`
}

// NewStatsRollupTask constructs an Asynq task for the stats rollup.
func NewStatsRollupTask(days int) (*asynq.Task, error) {
	data, err := json.Marshal(StatsRollupPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatsRollup, data), nil
}

// IdempotencyCleanupPayload bounds how old a key must be to be pruned.
type IdempotencyCleanupPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for key cleanup.
func NewIdempotencyCleanupTask(maxAgeHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{MaxAgeHours: maxAgeHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
