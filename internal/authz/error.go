package authz

import (
	"github.com/rollcall-app/rollcall/internal/shared"
)

// DeniedError carries a gate denial through error returns so transport
// code can surface the machine-readable reason.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	if e.Decision.Message != "" {
		return "authz: " + e.Decision.Message
	}
	return "authz: denied (" + string(e.Decision.Reason) + ")"
}

// Unwrap maps every denial onto the shared taxonomy.
func (e *DeniedError) Unwrap() error {
	return shared.ErrUnauthorized
}

// Err returns nil for an allow and a *DeniedError for a deny.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Decision: d}
}
