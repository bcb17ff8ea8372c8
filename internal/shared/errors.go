package shared

import "errors"

var (
	// ErrUnauthenticated indicates no caller identity was presented.
	ErrUnauthenticated = errors.New("caller identity required")
	// ErrUnauthorized indicates the caller is known but not allowed.
	ErrUnauthorized = errors.New("not allowed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials indicates login failure against the local provider.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdempotencyConflict indicates a duplicate import key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)

// UserSafeMessage maps internal errors to messages safe to show a caller.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Caller identity is required for this operation."
	case errors.Is(err, ErrUnauthorized):
		return "You do not have permission to perform this action."
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrConflict):
		return "A record with the same unique value already exists."
	case errors.Is(err, ErrIdempotencyConflict):
		return "This import was already processed."
	default:
		return "An unexpected error occurred."
	}
}
