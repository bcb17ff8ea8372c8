// Package authz holds the single authorization rule for administrative
// mutations. Handlers consult the gate; none of them re-derive the rule.
package authz

import (
	"github.com/rollcall-app/rollcall/internal/identity"
)

// DenyReason is the machine-readable cause attached to a denial.
type DenyReason string

const (
	ReasonMissingPermission DenyReason = "missing_permission"
	ReasonRoleCeiling       DenyReason = "role_ceiling"
	ReasonUnassignedRole    DenyReason = "unassigned_role"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Message string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// Authorize decides whether caller may perform the action guarded by perm
// against a target holding targetRole. targetRole is nil for actions that
// do not touch an existing principal (creates, non-account targets).
//
// The role ceiling is absolute: a granted permission never authorizes
// acting on a strictly higher-precedence role.
func Authorize(caller *identity.Principal, perm string, targetRole *identity.Role) Decision {
	if caller == nil || caller.Role.Name == "" {
		return deny(ReasonUnassignedRole, "caller has no assigned role")
	}
	if caller.IsSuperadmin() {
		return allow()
	}
	if !caller.HasPermission(perm) {
		return deny(ReasonMissingPermission, "missing permission "+perm)
	}
	if targetRole != nil && targetRole.Outranks(caller.Role) {
		return deny(ReasonRoleCeiling, "cannot act on role "+targetRole.Name)
	}
	return allow()
}
