// Package audit appends the immutable trail of administrative actions.
// Records are written once and never updated or deleted by application
// code; the trail is the only durable trace of who changed what.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Action kinds stored in the trail.
const (
	ActionCreate      = "CREATE"
	ActionUpdate      = "UPDATE"
	ActionDelete      = "DELETE"
	ActionUpsert      = "UPSERT"
	ActionCreateBatch = "CREATE_BATCH"
	ActionDeleteBatch = "DELETE_BATCH"
)

// UnknownActorEmail is stored when the actor's email cannot be resolved,
// keeping the trail readable even after the actor account is deleted.
const UnknownActorEmail = "unknown@rollcall.local"

// Entry describes one administrative action to be recorded.
type Entry struct {
	ActorID     string
	Action      string
	TargetTable string
	TargetID    string
	Description string
	OldValue    any
	NewValue    any
}

// Record is the stored form of an entry.
type Record struct {
	ID          int64           `json:"id"`
	ActorID     string          `json:"actor_id"`
	ActorEmail  string          `json:"actor_email"`
	Action      string          `json:"action"`
	TargetTable string          `json:"target_table"`
	TargetID    string          `json:"target_id,omitempty"`
	Description string          `json:"description"`
	OldValue    json.RawMessage `json:"old_value,omitempty"`
	NewValue    json.RawMessage `json:"new_value,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Store persists records and resolves actor emails.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	ActorEmail(ctx context.Context, actorID string) (string, error)
}

// Recorder writes audit records. Failures never propagate to business
// code: a lost trail entry is a lesser failure than rolling back the
// administrative action it describes.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Write appends one record for the entry. Errors are logged only.
func (r *Recorder) Write(ctx context.Context, entry Entry) {
	if r == nil || r.store == nil {
		return
	}
	rec := Record{
		ActorID:     entry.ActorID,
		Action:      entry.Action,
		TargetTable: entry.TargetTable,
		TargetID:    entry.TargetID,
		Description: entry.Description,
		OccurredAt:  time.Now().UTC(),
	}

	email, err := r.store.ActorEmail(ctx, entry.ActorID)
	if err != nil || email == "" {
		email = UnknownActorEmail
	}
	rec.ActorEmail = email

	if rec.OldValue, err = marshalSnapshot(entry.OldValue); err != nil {
		r.logger.Warn("audit old snapshot", slog.Any("error", err))
	}
	if rec.NewValue, err = marshalSnapshot(entry.NewValue); err != nil {
		r.logger.Warn("audit new snapshot", slog.Any("error", err))
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.Error("audit record lost",
			slog.String("actor", entry.ActorID),
			slog.String("action", entry.Action),
			slog.String("target", entry.TargetTable),
			slog.Any("error", err))
	}
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
