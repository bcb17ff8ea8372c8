// Package provider abstracts the external login-account system. The
// profile store and the provider share no transaction boundary, so the
// accounts service treats them as a saga with explicit compensation.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyExists indicates an email collision at the provider.
	ErrAlreadyExists = errors.New("provider: account already exists")
	// ErrNotFound indicates the provider has no such account.
	ErrNotFound = errors.New("provider: account not found")
)

// Account is the provider-side view of a login account.
type Account struct {
	ID    string
	Email string
}

// UpdateFields carries the provider-side mutable fields. Nil means leave
// the field untouched.
type UpdateFields struct {
	Email    *string
	Password *string
}

// IdentityProvider manages login-capable accounts.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string, metadata map[string]string) (Account, error)
	UpdateAccount(ctx context.Context, id string, fields UpdateFields) error
	DeleteAccount(ctx context.Context, id string) error
}
