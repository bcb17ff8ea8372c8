package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// Repository defines the read-only lookups the resolver depends on.
type Repository interface {
	FindPrincipal(ctx context.Context, id string) (*Principal, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindPrincipal resolves a profile row together with its role and the
// role's permission set in one round trip. A profile without a role row
// maps to ErrUnauthorized; an unknown id maps to ErrUnauthorized as well.
func (r *PGRepository) FindPrincipal(ctx context.Context, id string) (*Principal, error) {
	const query = `
		SELECT p.id, p.email, p.nickname, r.id, r.name, r.rank
		FROM profiles p
		JOIN roles r ON r.id = p.role_id
		WHERE p.id = $1`

	var principal Principal
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&principal.ID,
		&principal.Email,
		&principal.Nickname,
		&principal.Role.ID,
		&principal.Role.Name,
		&principal.Role.Rank,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}

	const permQuery = `
		SELECT perms.name
		FROM role_permissions rp
		JOIN permissions perms ON perms.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY perms.name`

	rows, err := r.pool.Query(ctx, permQuery, principal.Role.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		principal.Permissions = append(principal.Permissions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &principal, nil
}

var _ Repository = (*PGRepository)(nil)
