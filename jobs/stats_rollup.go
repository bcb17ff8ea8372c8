package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRollupJob recomputes the per-day check-in counters the record
// queries read instead of aggregating the raw table on every request.
type StatsRollupJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStatsRollupJob constructs the rollup job.
func NewStatsRollupJob(pool *pgxpool.Pool, logger *slog.Logger) *StatsRollupJob {
	return &StatsRollupJob{pool: pool, logger: logger}
}

// Handle processes TaskStatsRollup tasks.
func (j *StatsRollupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StatsRollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	days := payload.Days
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	start := time.Now()
	tag, err := j.pool.Exec(ctx, `
		INSERT INTO check_in_daily_stats (day, record_count, people_count)
		SELECT date_trunc('day', created_at)::date AS day,
		       COUNT(*),
		       COUNT(DISTINCT person_id)
		FROM check_in_records
		WHERE created_at >= $1
		GROUP BY 1
		ON CONFLICT (day) DO UPDATE
		SET record_count = EXCLUDED.record_count,
		    people_count = EXCLUDED.people_count`, since)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("stats rollup", slog.Any("error", err))
		}
		return err
	}
	if j.logger != nil {
		j.logger.Info("stats rollup complete",
			slog.Int64("days_written", tag.RowsAffected()),
			slog.Duration("took", time.Since(start)))
	}
	return nil
}
