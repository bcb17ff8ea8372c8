package roles

import "github.com/rollcall-app/rollcall/internal/identity"

// Permission is an atomic capability assignable to a role.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoleWithPermissions is the admin view of one role.
type RoleWithPermissions struct {
	identity.Role
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}
