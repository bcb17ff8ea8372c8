package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists audit records in PostgreSQL. The table only ever sees
// INSERT and SELECT from this codebase.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs the store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Insert appends one record.
func (s *PGStore) Insert(ctx context.Context, rec Record) error {
	targetID := pgtype.Text{String: rec.TargetID, Valid: rec.TargetID != ""}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, actor_email, action, target_table, target_id, description, old_value, new_value, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ActorID, rec.ActorEmail, rec.Action, rec.TargetTable, targetID,
		rec.Description, rec.OldValue, rec.NewValue, rec.OccurredAt)
	return err
}

// ActorEmail resolves the actor's email for denormalization at write time.
func (s *PGStore) ActorEmail(ctx context.Context, actorID string) (string, error) {
	var email string
	err := s.pool.QueryRow(ctx, `SELECT email FROM profiles WHERE id=$1`, actorID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return email, nil
}

// TimelineFilters narrows timeline queries.
type TimelineFilters struct {
	Actor    string
	Table    string
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// Timeline returns records newest first, honoring limit/offset.
func (s *PGStore) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Record, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if actor := strings.TrimSpace(filters.Actor); actor != "" {
		add("actor_email = $%d", actor)
	}
	if table := strings.TrimSpace(filters.Table); table != "" {
		add("target_table = $%d", table)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		add("action = $%d", action)
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To)
	}

	query := `SELECT id, actor_id, actor_email, action, target_table, target_id, description, old_value, new_value, occurred_at FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			targetID pgtype.Text
			occurred pgtype.Timestamptz
		)
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.ActorEmail, &rec.Action, &rec.TargetTable,
			&targetID, &rec.Description, &rec.OldValue, &rec.NewValue, &occurred); err != nil {
			return nil, err
		}
		if targetID.Valid {
			rec.TargetID = targetID.String
		}
		if occurred.Valid {
			rec.OccurredAt = occurred.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ Store = (*PGStore)(nil)
