package records

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for check-in records.
type Repository interface {
	InsertRecords(ctx context.Context, inputs []RecordInput) (int, error)
	GetRecords(ctx context.Context, ids []int64) ([]CheckInRecord, error)
	DeleteRecords(ctx context.Context, ids []int64) error
	RecordsByRange(ctx context.Context, from, to *time.Time) ([]CheckInRecord, error)
	RecordsByEvent(ctx context.Context, eventID int64) ([]CheckInRecord, error)
	RecentRecords(ctx context.Context, limit, offset int) ([]CheckInRecord, error)
	DailyStats(ctx context.Context) ([]DailyStat, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const recordSelect = `
	SELECT r.id, r.person_id, r.person_name, r.event_id, COALESCE(e.name, ''), r.action, r.created_at
	FROM check_in_records r
	LEFT JOIN events e ON e.id = r.event_id`

func scanRecords(rows pgx.Rows) ([]CheckInRecord, error) {
	defer rows.Close()
	var out []CheckInRecord
	for rows.Next() {
		var rec CheckInRecord
		if err := rows.Scan(&rec.ID, &rec.PersonID, &rec.PersonName, &rec.EventID, &rec.EventName, &rec.Action, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertRecords bulk-inserts check-in rows via pgx batching and returns
// the number of rows written.
func (r *PGRepository) InsertRecords(ctx context.Context, inputs []RecordInput) (int, error) {
	batch := &pgx.Batch{}
	for _, in := range inputs {
		batch.Queue(`
			INSERT INTO check_in_records (person_id, person_name, event_id, action, created_at)
			VALUES ($1, $2, $3, $4, NOW())`,
			in.PersonID, in.PersonName, in.EventID, in.Action)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range inputs {
		if _, err := results.Exec(); err != nil {
			return i, err
		}
	}
	return len(inputs), nil
}

// GetRecords fetches the given ids; missing ids are simply absent.
func (r *PGRepository) GetRecords(ctx context.Context, ids []int64) ([]CheckInRecord, error) {
	rows, err := r.pool.Query(ctx, recordSelect+` WHERE r.id = ANY($1) ORDER BY r.created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// DeleteRecords removes the given ids.
func (r *PGRepository) DeleteRecords(ctx context.Context, ids []int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM check_in_records WHERE id = ANY($1)`, ids)
	return err
}

// RecordsByRange returns records inside the half-open window. Either
// bound may be nil.
func (r *PGRepository) RecordsByRange(ctx context.Context, from, to *time.Time) ([]CheckInRecord, error) {
	query := recordSelect + ` WHERE 1=1`
	args := []any{}
	if from != nil {
		args = append(args, *from)
		query += ` AND r.created_at >= $1`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			query += ` AND r.created_at < $2`
		} else {
			query += ` AND r.created_at < $1`
		}
	}
	query += ` ORDER BY r.created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// RecordsByEvent returns an event's records in check-in order.
func (r *PGRepository) RecordsByEvent(ctx context.Context, eventID int64) ([]CheckInRecord, error) {
	rows, err := r.pool.Query(ctx, recordSelect+` WHERE r.event_id = $1 ORDER BY r.created_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// RecentRecords returns the newest records with limit/offset paging.
func (r *PGRepository) RecentRecords(ctx context.Context, limit, offset int) ([]CheckInRecord, error) {
	rows, err := r.pool.Query(ctx, recordSelect+` ORDER BY r.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// DailyStats reads the rollup table the worker maintains.
func (r *PGRepository) DailyStats(ctx context.Context) ([]DailyStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day, record_count, people_count
		FROM check_in_daily_stats
		ORDER BY day DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stats []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Day, &s.RecordCount, &s.PeopleCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
