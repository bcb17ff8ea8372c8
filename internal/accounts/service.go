package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/provider"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Invalidator drops cached principals after their account changed.
type Invalidator interface {
	Invalidate(ctx context.Context, callerID string)
}

// Service executes permission-gated account mutations. Every path runs
// the same pipeline: gate first, mutate second, audit last. The provider
// and the profile store share no transaction, so creates are a saga with
// a compensating provider delete.
type Service struct {
	repo     Repository
	provider provider.IdentityProvider
	audit    *audit.Recorder
	cache    Invalidator
	logger   *slog.Logger
}

// NewService constructs the accounts service. cache may be nil.
func NewService(repo Repository, idp provider.IdentityProvider, recorder *audit.Recorder, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, provider: idp, audit: recorder, cache: cache, logger: logger}
}

// List returns all account profiles.
func (s *Service) List(ctx context.Context, actor *identity.Principal) ([]Profile, error) {
	if decision := authz.Authorize(actor, shared.PermAccountsView, nil); !decision.Allowed {
		return nil, denialError(decision)
	}
	return s.repo.ListProfiles(ctx)
}

// Create provisions a login account at the provider and a profile row
// keyed by the new account id. The role ceiling applies to the role being
// granted: an admin cannot mint accounts above their own tier.
func (s *Service) Create(ctx context.Context, actor *identity.Principal, input CreateInput) (Profile, error) {
	roleName := strings.TrimSpace(input.RoleName)
	if roleName == "" {
		roleName = identity.RoleOperator
	}
	role, err := s.repo.RoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Profile{}, fmt.Errorf("%w: unknown role %q", shared.ErrNotFound, roleName)
		}
		return Profile{}, err
	}
	if decision := authz.Authorize(actor, shared.PermAccountsEdit, &role); !decision.Allowed {
		return Profile{}, denialError(decision)
	}

	account, err := s.provider.CreateAccount(ctx, input.Email, input.Password, map[string]string{"nickname": input.Nickname})
	if err != nil {
		if errors.Is(err, provider.ErrAlreadyExists) {
			return Profile{}, shared.ErrConflict
		}
		return Profile{}, err
	}

	if err := s.repo.UpsertProfile(ctx, account.ID, input.Email, input.Nickname, role.ID); err != nil {
		// Compensate: remove the provider account so no login-capable
		// account survives without a profile and role. Best effort only.
		if compErr := s.provider.DeleteAccount(ctx, account.ID); compErr != nil && !errors.Is(compErr, provider.ErrNotFound) {
			s.logger.Error("compensating provider delete failed",
				slog.String("account_id", account.ID),
				slog.Any("error", compErr))
		}
		return Profile{}, err
	}

	created, fetchErr := s.repo.GetProfile(ctx, account.ID)
	if fetchErr != nil {
		created = Profile{ID: account.ID, Email: input.Email, Nickname: input.Nickname, Role: role}
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionCreate,
		TargetTable: "profiles",
		TargetID:    account.ID,
		Description: fmt.Sprintf("create account %s (role %s)", input.Email, role.Name),
		NewValue:    created.snapshot(),
	})
	return created, nil
}

// Update applies provider and profile field changes to one account.
func (s *Service) Update(ctx context.Context, actor *identity.Principal, id string, input UpdateInput) (Profile, error) {
	existing, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if decision := authz.Authorize(actor, shared.PermAccountsEdit, &existing.Role); !decision.Allowed {
		return Profile{}, denialError(decision)
	}

	var roleID *int64
	role := existing.Role
	if input.RoleName != nil {
		name := strings.TrimSpace(*input.RoleName)
		if name == "" {
			name = identity.RoleOperator
		}
		newRole, err := s.repo.RoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return Profile{}, fmt.Errorf("%w: unknown role %q", shared.ErrNotFound, name)
			}
			return Profile{}, err
		}
		// The ceiling also covers the role being granted.
		if decision := authz.Authorize(actor, shared.PermAccountsEdit, &newRole); !decision.Allowed {
			return Profile{}, denialError(decision)
		}
		role = newRole
		roleID = &newRole.ID
	}

	var providerFields provider.UpdateFields
	if input.Email != nil && *input.Email != existing.Email {
		providerFields.Email = input.Email
	}
	providerFields.Password = input.Password
	if providerFields.Email != nil || providerFields.Password != nil {
		if err := s.provider.UpdateAccount(ctx, id, providerFields); err != nil {
			switch {
			case errors.Is(err, provider.ErrNotFound):
				return Profile{}, shared.ErrNotFound
			case errors.Is(err, provider.ErrAlreadyExists):
				return Profile{}, shared.ErrConflict
			default:
				return Profile{}, err
			}
		}
	}

	if err := s.repo.UpdateProfile(ctx, id, providerFields.Email, input.Nickname, roleID); err != nil {
		return Profile{}, err
	}
	s.invalidate(ctx, id)

	updated, fetchErr := s.repo.GetProfile(ctx, id)
	if fetchErr != nil {
		updated = existing
		updated.Role = role
	}
	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionUpdate,
		TargetTable: "profiles",
		TargetID:    id,
		Description: fmt.Sprintf("update account %s (role %s)", updated.Email, updated.Role.Name),
		OldValue:    existing.snapshot(),
		NewValue:    updated.snapshot(),
	})
	return updated, nil
}

// Delete removes the given accounts. Items are processed independently
// and in order; one failure never aborts the batch. Provider "not found"
// counts as success-so-far and local remnants are still cleaned up.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, ids []string) (BatchResult, error) {
	if decision := authz.Authorize(actor, shared.PermAccountsDelete, nil); !decision.Allowed {
		return BatchResult{}, denialError(decision)
	}

	snapshots, err := s.repo.GetProfiles(ctx, ids)
	if err != nil {
		s.logger.Warn("fetch profiles before delete", slog.Any("error", err))
		snapshots = map[string]Profile{}
	}

	var result BatchResult
	for _, id := range ids {
		snapshot, known := snapshots[id]
		if known {
			if decision := authz.Authorize(actor, shared.PermAccountsDelete, &snapshot.Role); !decision.Allowed {
				result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: string(decision.Reason)})
				continue
			}
		}

		if err := s.provider.DeleteAccount(ctx, id); err != nil && !errors.Is(err, provider.ErrNotFound) {
			result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		if err := s.repo.DeleteProfile(ctx, id); err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		s.invalidate(ctx, id)
		result.Succeeded = append(result.Succeeded, id)

		entry := audit.Entry{
			ActorID:     actor.ID,
			Action:      audit.ActionDelete,
			TargetTable: "profiles",
			TargetID:    id,
			Description: fmt.Sprintf("delete account %s", describeTarget(snapshot, id, known)),
		}
		if known {
			entry.OldValue = snapshot.snapshot()
		}
		s.audit.Write(ctx, entry)
	}
	return result, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

func describeTarget(p Profile, id string, known bool) string {
	if known && p.Email != "" {
		return p.Email
	}
	return id
}

func denialError(decision authz.Decision) error {
	return decision.Err()
}
