package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

var (
	superadminRole = identity.Role{ID: 1, Name: identity.RoleSuperadmin, Rank: 100}
	adminRole      = identity.Role{ID: 2, Name: identity.RoleAdmin, Rank: 50}
	operatorRole   = identity.Role{ID: 3, Name: identity.RoleOperator, Rank: 10}
)

func principal(role identity.Role, perms ...string) *identity.Principal {
	return &identity.Principal{ID: "p", Role: role, Permissions: perms}
}

func TestSuperadminAlwaysAllowed(t *testing.T) {
	caller := principal(superadminRole)
	for _, target := range []*identity.Role{nil, &superadminRole, &adminRole, &operatorRole} {
		decision := Authorize(caller, shared.PermAccountsDelete, target)
		require.True(t, decision.Allowed)
	}
}

func TestRoleCeilingBeatsGrantedPermission(t *testing.T) {
	caller := principal(adminRole, shared.PermAccountsDelete, shared.PermAccountsEdit)
	decision := Authorize(caller, shared.PermAccountsDelete, &superadminRole)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonRoleCeiling, decision.Reason)
}

func TestEmptyPermissionSetDenied(t *testing.T) {
	caller := principal(adminRole)
	for _, perm := range shared.CoreScopes() {
		decision := Authorize(caller, perm, nil)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonMissingPermission, decision.Reason)
	}
}

func TestGrantedPermissionAllowsEqualOrLowerTarget(t *testing.T) {
	caller := principal(adminRole, shared.PermAccountsEdit)
	require.True(t, Authorize(caller, shared.PermAccountsEdit, &operatorRole).Allowed)
	require.True(t, Authorize(caller, shared.PermAccountsEdit, &adminRole).Allowed)
	require.True(t, Authorize(caller, shared.PermAccountsEdit, nil).Allowed)
}

func TestNilOrRolelessCallerDenied(t *testing.T) {
	decision := Authorize(nil, shared.PermAccountsEdit, nil)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonUnassignedRole, decision.Reason)

	decision = Authorize(&identity.Principal{ID: "x"}, shared.PermAccountsEdit, nil)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonUnassignedRole, decision.Reason)
}
