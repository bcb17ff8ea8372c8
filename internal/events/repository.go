package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// Repository defines persistence operations for events.
type Repository interface {
	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	Participants(ctx context.Context, eventID int64) ([]int64, error)
	SaveEvent(ctx context.Context, input EventInput, createdBy string) (Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const eventColumns = `id, name, description, start_time, end_time, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.StartTime, &e.EndTime, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// ListEvents returns all events newest first, with participant ids.
func (r *PGRepository) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range events {
		ids, err := r.Participants(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Participants = ids
	}
	return events, nil
}

// GetEvent fetches one event with its participant ids.
func (r *PGRepository) GetEvent(ctx context.Context, id int64) (Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, shared.ErrNotFound
		}
		return Event{}, err
	}
	e.Participants, err = r.Participants(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return e, nil
}

// Participants returns the enrolled personnel ids for an event.
func (r *PGRepository) Participants(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT personnel_id FROM event_participants WHERE event_id = $1 ORDER BY personnel_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveEvent inserts or updates the event row and replaces its participant
// set in one transaction.
func (r *PGRepository) SaveEvent(ctx context.Context, input EventInput, createdBy string) (Event, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Event{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var e Event
	if input.ID == 0 {
		e, err = scanEvent(tx.QueryRow(ctx, `
			INSERT INTO events (name, description, start_time, end_time, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING `+eventColumns,
			input.Name, input.Description, input.StartTime, input.EndTime, createdBy))
	} else {
		e, err = scanEvent(tx.QueryRow(ctx, `
			UPDATE events
			SET name = $2, description = $3, start_time = $4, end_time = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING `+eventColumns,
			input.ID, input.Name, input.Description, input.StartTime, input.EndTime))
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, shared.ErrNotFound
		}
		return Event{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1`, e.ID); err != nil {
		return Event{}, err
	}
	for _, personID := range input.Participants {
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_participants (event_id, personnel_id) VALUES ($1, $2)`, e.ID, personID); err != nil {
			return Event{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Event{}, err
	}
	e.Participants = append([]int64(nil), input.Participants...)
	return e, nil
}

// DeleteEvent removes the event; participants cascade in the schema.
func (r *PGRepository) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
