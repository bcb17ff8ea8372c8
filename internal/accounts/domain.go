package accounts

import (
	"time"

	"github.com/rollcall-app/rollcall/internal/identity"
)

// Profile is the local account row joined with its role.
type Profile struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Nickname  string        `json:"nickname"`
	Role      identity.Role `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// snapshot is the audit-trail shape of a profile.
func (p Profile) snapshot() map[string]any {
	return map[string]any{
		"id":       p.ID,
		"email":    p.Email,
		"nickname": p.Nickname,
		"role":     p.Role.Name,
	}
}

// CreateInput describes a new account. A blank role falls back to
// operator, matching the profile table default.
type CreateInput struct {
	Email    string
	Password string
	RoleName string
	Nickname string
}

// UpdateInput carries the mutable account fields. Nil leaves a field
// untouched; a changed email is synced to the profile row.
type UpdateInput struct {
	Email    *string
	Password *string
	RoleName *string
	Nickname *string
}

// BatchFailure reports one failed item of a batch operation.
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult accumulates per-item outcomes. One item's failure never
// aborts the rest of the batch.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// Partial reports whether the batch mixed successes and failures.
func (r BatchResult) Partial() bool {
	return len(r.Succeeded) > 0 && len(r.Failed) > 0
}
