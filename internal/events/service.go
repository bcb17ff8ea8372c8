package events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Service handles event business logic.
type Service struct {
	repo  Repository
	audit *audit.Recorder
}

// NewService builds Service instance.
func NewService(repo Repository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, audit: recorder}
}

// List returns all events with their participant ids.
func (s *Service) List(ctx context.Context, actor *identity.Principal) ([]Event, error) {
	if err := authz.Authorize(actor, shared.PermEventsView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx)
}

// Participants returns the enrolled personnel ids for an event.
func (s *Service) Participants(ctx context.Context, actor *identity.Principal, eventID int64) ([]int64, error) {
	if err := authz.Authorize(actor, shared.PermEventsView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.Participants(ctx, eventID)
}

// Save creates or updates an event together with its participant set and
// writes a CREATE or UPDATE audit record.
func (s *Service) Save(ctx context.Context, actor *identity.Principal, input EventInput) (Event, error) {
	if err := authz.Authorize(actor, shared.PermEventsEdit, nil).Err(); err != nil {
		return Event{}, err
	}
	action := audit.ActionCreate
	if input.ID != 0 {
		action = audit.ActionUpdate
	}
	event, err := s.repo.SaveEvent(ctx, input, actor.ID)
	if err != nil {
		return Event{}, err
	}
	verb := "create"
	if action == audit.ActionUpdate {
		verb = "update"
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      action,
		TargetTable: "events",
		TargetID:    strconv.FormatInt(event.ID, 10),
		Description: fmt.Sprintf("%s event %s", verb, event.Name),
		NewValue:    map[string]any{"event": event, "participants": event.Participants},
	})
	return event, nil
}

// Delete removes an event, snapshotting the old row into the trail.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, id int64) error {
	if err := authz.Authorize(actor, shared.PermEventsEdit, nil).Err(); err != nil {
		return err
	}
	old, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionDelete,
		TargetTable: "events",
		TargetID:    strconv.FormatInt(id, 10),
		Description: fmt.Sprintf("delete event %s", old.Name),
		OldValue:    old,
	})
	return nil
}
