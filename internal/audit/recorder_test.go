package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryAuditStore struct {
	records   []Record
	emails    map[string]string
	insertErr error
	emailErr  error
}

func (m *memoryAuditStore) Insert(ctx context.Context, rec Record) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryAuditStore) ActorEmail(ctx context.Context, actorID string) (string, error) {
	if m.emailErr != nil {
		return "", m.emailErr
	}
	return m.emails[actorID], nil
}

func (m *memoryAuditStore) lastFor(targetID string) *Record {
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].TargetID == targetID {
			return &m.records[i]
		}
	}
	return nil
}

func TestRecordRoundTrip(t *testing.T) {
	store := &memoryAuditStore{emails: map[string]string{"admin-1": "admin@example.com"}}
	recorder := NewRecorder(store, slog.Default())

	oldState := map[string]any{"nickname": "before"}
	newState := map[string]any{"nickname": "after"}
	recorder.Write(context.Background(), Entry{
		ActorID:     "admin-1",
		Action:      ActionUpdate,
		TargetTable: "profiles",
		TargetID:    "user-9",
		Description: "update account: user-9",
		OldValue:    oldState,
		NewValue:    newState,
	})

	rec := store.lastFor("user-9")
	require.NotNil(t, rec)
	require.Equal(t, "admin@example.com", rec.ActorEmail)
	require.Equal(t, ActionUpdate, rec.Action)

	var gotOld, gotNew map[string]any
	require.NoError(t, json.Unmarshal(rec.OldValue, &gotOld))
	require.NoError(t, json.Unmarshal(rec.NewValue, &gotNew))
	require.Equal(t, "before", gotOld["nickname"])
	require.Equal(t, "after", gotNew["nickname"])
}

func TestRecordNilSnapshotsStayNil(t *testing.T) {
	store := &memoryAuditStore{emails: map[string]string{}}
	recorder := NewRecorder(store, slog.Default())

	recorder.Write(context.Background(), Entry{
		ActorID:     "admin-1",
		Action:      ActionCreate,
		TargetTable: "profiles",
		TargetID:    "user-1",
		Description: "create account",
	})

	rec := store.lastFor("user-1")
	require.NotNil(t, rec)
	require.Nil(t, rec.OldValue)
	require.Nil(t, rec.NewValue)
}

func TestRecordFallsBackToSentinelEmail(t *testing.T) {
	store := &memoryAuditStore{emailErr: errors.New("lookup down")}
	recorder := NewRecorder(store, slog.Default())

	recorder.Write(context.Background(), Entry{
		ActorID:     "ghost",
		Action:      ActionDelete,
		TargetTable: "profiles",
		TargetID:    "user-2",
		Description: "delete account",
	})

	rec := store.lastFor("user-2")
	require.NotNil(t, rec)
	require.Equal(t, UnknownActorEmail, rec.ActorEmail)
}

func TestRecordInsertFailureIsSwallowed(t *testing.T) {
	store := &memoryAuditStore{insertErr: errors.New("sink down")}
	recorder := NewRecorder(store, slog.Default())

	require.NotPanics(t, func() {
		recorder.Write(context.Background(), Entry{
			ActorID:     "admin-1",
			Action:      ActionCreate,
			TargetTable: "profiles",
			TargetID:    "user-3",
			Description: "create account",
		})
	})
	require.Empty(t, store.records)
}
