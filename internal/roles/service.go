package roles

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Invalidator flushes cached principals after a role-wide change.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Service wraps role administration rules. Changing a role's permission
// set is itself a gated, audited mutation; the role ceiling applies when
// the edited role outranks the caller.
type Service struct {
	repo  Repository
	audit *audit.Recorder
	cache Invalidator
}

// NewService constructs the roles service. cache may be nil.
func NewService(repo Repository, recorder *audit.Recorder, cache Invalidator) *Service {
	return &Service{repo: repo, audit: recorder, cache: cache}
}

// ListRoles returns all roles with nested permissions.
func (s *Service) ListRoles(ctx context.Context, actor *identity.Principal) ([]RoleWithPermissions, error) {
	if err := authz.Authorize(actor, shared.PermRolesView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx)
}

// ListPermissions returns the full permission catalogue.
func (s *Service) ListPermissions(ctx context.Context, actor *identity.Principal) ([]Permission, error) {
	if err := authz.Authorize(actor, shared.PermRolesView, nil).Err(); err != nil {
		return nil, err
	}
	return s.repo.ListPermissions(ctx)
}

// SetRolePermissions replaces a role's permission set. The old and new id
// lists are snapshotted into the trail.
func (s *Service) SetRolePermissions(ctx context.Context, actor *identity.Principal, roleID int64, permissionIDs []int64) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, shared.PermRolesEdit, &role.Role).Err(); err != nil {
		return err
	}

	oldIDs, err := s.repo.RolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	// Every principal holding this role now carries a stale permission
	// set in the cache.
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}

	s.audit.Write(ctx, audit.Entry{
		ActorID:     actor.ID,
		Action:      audit.ActionUpdate,
		TargetTable: "role_permissions",
		TargetID:    strconv.FormatInt(roleID, 10),
		Description: fmt.Sprintf("replace permissions for role %s (%d -> %d grants)", role.Name, len(oldIDs), len(permissionIDs)),
		OldValue:    map[string]any{"permission_ids": oldIDs},
		NewValue:    map[string]any{"permission_ids": permissionIDs},
	})
	return nil
}
