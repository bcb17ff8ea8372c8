package personnel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Import chunk size matches the batch limit the registry's front end has
// always used.
const importChunkSize = 500

// importWorkers caps concurrent update fan-out against the store.
const importWorkers = 4

// IdempotencyChecker guards import replays. Delete releases a consumed
// key when the run aborted before doing any work.
type IdempotencyChecker interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service handles personnel registry business logic.
type Service struct {
	repo        Repository
	audit       *audit.Recorder
	idempotency IdempotencyChecker
}

// NewService builds Service instance. idempotency may be nil.
func NewService(repo Repository, recorder *audit.Recorder, idempotency IdempotencyChecker) *Service {
	return &Service{repo: repo, audit: recorder, idempotency: idempotency}
}

// List returns the registry.
func (s *Service) List(ctx context.Context, actor *identity.Principal) ([]Person, error) {
	if err := authz.Authorize(actor, shared.PermPersonnelView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListPeople(ctx)
}

// Create adds a single person.
func (s *Service) Create(ctx context.Context, actor *identity.Principal, input PersonInput) (Person, error) {
	if err := authz.Authorize(actor, shared.PermPersonnelEdit, nil).Err(); err != nil {
		return Person{}, err
	}
	input = normalizeInput(input)
	person, err := s.repo.InsertPerson(ctx, input)
	if err != nil {
		return Person{}, err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionCreate,
		TargetTable: "personnel",
		TargetID:    strconv.FormatInt(person.ID, 10),
		Description: fmt.Sprintf("create person %s (%s)", person.Name, person.Code),
		NewValue:    person,
	})
	return person, nil
}

// Update replaces a person's writable fields.
func (s *Service) Update(ctx context.Context, actor *identity.Principal, id int64, input PersonInput) (Person, error) {
	if err := authz.Authorize(actor, shared.PermPersonnelEdit, nil).Err(); err != nil {
		return Person{}, err
	}
	old, err := s.repo.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}
	person, err := s.repo.UpdatePerson(ctx, id, normalizeInput(input))
	if err != nil {
		return Person{}, err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionUpdate,
		TargetTable: "personnel",
		TargetID:    strconv.FormatInt(id, 10),
		Description: fmt.Sprintf("update person %s (%s)", person.Name, person.Code),
		OldValue:    old,
		NewValue:    person,
	})
	return person, nil
}

// UpdateTags replaces only a person's tag list, snapshotting tags alone.
func (s *Service) UpdateTags(ctx context.Context, actor *identity.Principal, id int64, tags []string) (Person, error) {
	if err := authz.Authorize(actor, shared.PermPersonnelEdit, nil).Err(); err != nil {
		return Person{}, err
	}
	old, err := s.repo.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}
	person, err := s.repo.UpdateTags(ctx, id, tags)
	if err != nil {
		return Person{}, err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionUpdate,
		TargetTable: "personnel",
		TargetID:    strconv.FormatInt(id, 10),
		Description: fmt.Sprintf("update tags for %s (%s)", person.Name, person.Code),
		OldValue:    map[string]any{"tags": old.Tags},
		NewValue:    map[string]any{"tags": person.Tags},
	})
	return person, nil
}

// Delete removes people by id, snapshotting the old rows into the trail.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, ids []int64) error {
	if err := authz.Authorize(actor, shared.PermPersonnelEdit, nil).Err(); err != nil {
		return err
	}
	old, err := s.repo.GetPeople(ctx, ids)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePeople(ctx, ids); err != nil {
		return err
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionDeleteBatch,
		TargetTable: "personnel",
		Description: fmt.Sprintf("delete %d people", len(old)),
		OldValue:    old,
	})
	return nil
}

// Import upserts rows by natural key (code or card number). New rows are
// inserted in chunks; existing rows are updated with a bounded concurrent
// fan-out. One chunk's failure never aborts the rest of the run.
func (s *Service) Import(ctx context.Context, actor *identity.Principal, key string, rows []PersonInput) (ImportResult, error) {
	if err := authz.Authorize(actor, shared.PermPersonnelEdit, nil).Err(); err != nil {
		return ImportResult{}, err
	}
	if s.idempotency != nil && key != "" {
		if err := s.idempotency.CheckAndInsert(ctx, key, "personnel"); err != nil {
			return ImportResult{}, err
		}
	}

	refs, err := s.repo.KeyRefs(ctx)
	if err != nil {
		// Nothing was imported yet; free the key so the client can retry.
		if s.idempotency != nil && key != "" {
			_ = s.idempotency.Delete(ctx, key)
		}
		return ImportResult{}, err
	}
	byCode := make(map[string]int64, len(refs))
	byCard := make(map[string]int64, len(refs))
	for _, ref := range refs {
		byCode[ref.Code] = ref.ID
		byCard[ref.CardNumber] = ref.ID
	}

	var inserts []PersonInput
	type pendingUpdate struct {
		id    int64
		input PersonInput
	}
	var updates []pendingUpdate
	for _, row := range rows {
		row = normalizeInput(row)
		if id, ok := byCode[row.Code]; ok {
			updates = append(updates, pendingUpdate{id: id, input: row})
			continue
		}
		if id, ok := byCard[row.CardNumber]; ok {
			updates = append(updates, pendingUpdate{id: id, input: row})
			continue
		}
		inserts = append(inserts, row)
	}

	var result ImportResult
	for start := 0; start < len(inserts); start += importChunkSize {
		end := min(start+importChunkSize, len(inserts))
		chunk := inserts[start:end]
		if err := s.repo.InsertPeople(ctx, chunk); err != nil {
			for _, item := range chunk {
				result.Errors = append(result.Errors, fmt.Sprintf("insert %s (%s): %v", item.Name, item.Code, err))
			}
			continue
		}
		result.Inserted += len(chunk)
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(importWorkers)
	for _, u := range updates {
		u := u
		group.Go(func() error {
			_, err := s.repo.UpdatePerson(groupCtx, u.id, u.input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("update %s (%s): %v", u.input.Name, u.input.Code, err))
				return nil
			}
			result.Updated++
			return nil
		})
	}
	_ = group.Wait()

	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionUpsert,
		TargetTable: "personnel",
		Description: fmt.Sprintf("bulk import: %d inserted, %d updated, %d failed", result.Inserted, result.Updated, len(result.Errors)),
		NewValue:    result,
	})
	return result, nil
}

func normalizeInput(input PersonInput) PersonInput {
	input.Code = strings.TrimSpace(input.Code)
	input.CardNumber = strings.TrimSpace(input.CardNumber)
	input.Name = norm.NFC.String(strings.TrimSpace(input.Name))
	input.Building = strings.TrimSpace(input.Building)
	return input
}
