package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

type memoryEventsRepo struct {
	events       map[int64]Event
	participants map[int64][]int64
	nextID       int64
}

func newMemoryEventsRepo() *memoryEventsRepo {
	return &memoryEventsRepo{events: make(map[int64]Event), participants: make(map[int64][]int64)}
}

func (r *memoryEventsRepo) ListEvents(ctx context.Context) ([]Event, error) {
	var out []Event
	for id, e := range r.events {
		e.Participants = r.participants[id]
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryEventsRepo) GetEvent(ctx context.Context, id int64) (Event, error) {
	e, ok := r.events[id]
	if !ok {
		return Event{}, shared.ErrNotFound
	}
	e.Participants = r.participants[id]
	return e, nil
}

func (r *memoryEventsRepo) Participants(ctx context.Context, eventID int64) ([]int64, error) {
	return r.participants[eventID], nil
}

func (r *memoryEventsRepo) SaveEvent(ctx context.Context, input EventInput, createdBy string) (Event, error) {
	id := input.ID
	if id == 0 {
		r.nextID++
		id = r.nextID
		r.events[id] = Event{
			ID: id, Name: input.Name, Description: input.Description,
			StartTime: input.StartTime, EndTime: input.EndTime, CreatedBy: createdBy,
		}
	} else {
		e, ok := r.events[id]
		if !ok {
			return Event{}, shared.ErrNotFound
		}
		e.Name = input.Name
		e.Description = input.Description
		e.StartTime = input.StartTime
		e.EndTime = input.EndTime
		r.events[id] = e
	}
	r.participants[id] = append([]int64(nil), input.Participants...)
	e := r.events[id]
	e.Participants = r.participants[id]
	return e, nil
}

func (r *memoryEventsRepo) DeleteEvent(ctx context.Context, id int64) error {
	if _, ok := r.events[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.events, id)
	delete(r.participants, id)
	return nil
}

type captureAuditStore struct {
	records []audit.Record
}

func (s *captureAuditStore) Insert(ctx context.Context, rec audit.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *captureAuditStore) ActorEmail(ctx context.Context, actorID string) (string, error) {
	return "admin@example.com", nil
}

func planner() *identity.Principal {
	return &identity.Principal{
		ID:          "admin-1",
		Role:        identity.Role{ID: 2, Name: identity.RoleAdmin, Rank: 50},
		Permissions: []string{shared.PermEventsView, shared.PermEventsEdit},
	}
}

func newEventsService(repo *memoryEventsRepo) (*Service, *captureAuditStore) {
	store := &captureAuditStore{}
	return NewService(repo, audit.NewRecorder(store, slog.Default())), store
}

func window() (time.Time, time.Time) {
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	return start, start.Add(2 * time.Hour)
}

func TestSaveCreatesEventWithParticipants(t *testing.T) {
	repo := newMemoryEventsRepo()
	svc, store := newEventsService(repo)

	start, end := window()
	event, err := svc.Save(context.Background(), planner(), EventInput{
		Name: "Morning Session", StartTime: start, EndTime: end,
		Participants: []int64{1, 2, 3},
	})
	require.NoError(t, err)
	require.NotZero(t, event.ID)
	require.Equal(t, []int64{1, 2, 3}, event.Participants)
	require.Equal(t, "admin-1", repo.events[event.ID].CreatedBy)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	require.Equal(t, audit.ActionCreate, rec.Action)

	var payload struct {
		Participants []int64 `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(rec.NewValue, &payload))
	require.Equal(t, []int64{1, 2, 3}, payload.Participants)
}

func TestSaveReplacesParticipantSet(t *testing.T) {
	repo := newMemoryEventsRepo()
	svc, store := newEventsService(repo)

	start, end := window()
	event, err := svc.Save(context.Background(), planner(), EventInput{
		Name: "Session", StartTime: start, EndTime: end, Participants: []int64{1, 2},
	})
	require.NoError(t, err)

	updated, err := svc.Save(context.Background(), planner(), EventInput{
		ID: event.ID, Name: "Session", StartTime: start, EndTime: end, Participants: []int64{3},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{3}, updated.Participants)
	require.Equal(t, []int64{3}, repo.participants[event.ID])

	require.Len(t, store.records, 2)
	require.Equal(t, audit.ActionUpdate, store.records[1].Action)
}

func TestDeleteSnapshotsEvent(t *testing.T) {
	repo := newMemoryEventsRepo()
	svc, store := newEventsService(repo)

	start, end := window()
	event, err := svc.Save(context.Background(), planner(), EventInput{
		Name: "Doomed", StartTime: start, EndTime: end,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), planner(), event.ID))
	require.Empty(t, repo.events)

	rec := store.records[len(store.records)-1]
	require.Equal(t, audit.ActionDelete, rec.Action)

	var old Event
	require.NoError(t, json.Unmarshal(rec.OldValue, &old))
	require.Equal(t, "Doomed", old.Name)
}

func TestDeleteMissingEventIsNotFound(t *testing.T) {
	repo := newMemoryEventsRepo()
	svc, store := newEventsService(repo)

	err := svc.Delete(context.Background(), planner(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, store.records)
}

func TestSaveRequiresEditPermission(t *testing.T) {
	repo := newMemoryEventsRepo()
	svc, _ := newEventsService(repo)

	viewer := &identity.Principal{
		ID: "op-1", Role: identity.Role{ID: 3, Name: identity.RoleOperator, Rank: 10},
		Permissions: []string{shared.PermEventsView},
	}
	start, end := window()
	_, err := svc.Save(context.Background(), viewer, EventInput{Name: "Nope", StartTime: start, EndTime: end})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
