package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// LocalProvider stores login accounts in Postgres with bcrypt hashes.
// Used for development and on-premise deployments without a hosted
// identity service.
type LocalProvider struct {
	pool *pgxpool.Pool
}

// NewLocalProvider constructs the provider.
func NewLocalProvider(pool *pgxpool.Pool) *LocalProvider {
	return &LocalProvider{pool: pool}
}

// CreateAccount inserts a new login account.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string, _ map[string]string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	id := uuid.NewString()
	_, err = p.pool.Exec(ctx,
		`INSERT INTO local_accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, NOW())`,
		id, email, hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrAlreadyExists
		}
		return Account{}, err
	}
	return Account{ID: id, Email: email}, nil
}

// UpdateAccount changes email and/or password for an existing account.
func (p *LocalProvider) UpdateAccount(ctx context.Context, id string, fields UpdateFields) error {
	if fields.Email != nil {
		tag, err := p.pool.Exec(ctx, `UPDATE local_accounts SET email=$2, updated_at=NOW() WHERE id=$1`, id, *fields.Email)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrAlreadyExists
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	if fields.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*fields.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		tag, err := p.pool.Exec(ctx, `UPDATE local_accounts SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, hash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// DeleteAccount removes an account, reporting ErrNotFound when absent.
func (p *LocalProvider) DeleteAccount(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM local_accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Authenticate checks email/password credentials, used by dev tooling.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (Account, error) {
	var account Account
	var hash []byte
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, password_hash FROM local_accounts WHERE email=$1`, email).
		Scan(&account.ID, &account.Email, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Account{}, shared.ErrInvalidCredentials
	}
	return account, nil
}

var _ IdentityProvider = (*LocalProvider)(nil)
