package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Repository defines persistence operations for account profiles.
type Repository interface {
	ListProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetProfiles(ctx context.Context, ids []string) (map[string]Profile, error)
	UpsertProfile(ctx context.Context, id, email, nickname string, roleID int64) error
	UpdateProfile(ctx context.Context, id string, email, nickname *string, roleID *int64) error
	DeleteProfile(ctx context.Context, id string) error
	RoleByName(ctx context.Context, name string) (identity.Role, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const profileColumns = `p.id, p.email, p.nickname, r.id, r.name, r.rank, p.created_at, p.updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.Nickname, &p.Role.ID, &p.Role.Name, &p.Role.Rank, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProfiles returns all profiles with their roles.
func (r *PGRepository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles p JOIN roles r ON r.id = p.role_id ORDER BY p.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// GetProfile fetches one profile by id.
func (r *PGRepository) GetProfile(ctx context.Context, id string) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles p JOIN roles r ON r.id = p.role_id WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// GetProfiles fetches profiles for the given ids, keyed by id. Missing
// ids are simply absent from the map.
func (r *PGRepository) GetProfiles(ctx context.Context, ids []string) (map[string]Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles p JOIN roles r ON r.id = p.role_id WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	profiles := make(map[string]Profile, len(ids))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

// UpsertProfile creates or replaces the profile row keyed by the provider
// account id.
func (r *PGRepository) UpsertProfile(ctx context.Context, id, email, nickname string, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, email, nickname, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, nickname = EXCLUDED.nickname, role_id = EXCLUDED.role_id, updated_at = NOW()`,
		id, email, nickname, roleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrConflict
		}
		return err
	}
	return nil
}

// UpdateProfile applies the non-nil fields to an existing row.
func (r *PGRepository) UpdateProfile(ctx context.Context, id string, email, nickname *string, roleID *int64) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if email != nil {
		add("email", *email)
	}
	if nickname != nil {
		add("nickname", *nickname)
	}
	if roleID != nil {
		add("role_id", *roleID)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteProfile removes a profile row. Absent rows are not an error so
// batch deletes stay idempotent on the local side.
func (r *PGRepository) DeleteProfile(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	return err
}

// RoleByName resolves a role by its name.
func (r *PGRepository) RoleByName(ctx context.Context, name string) (identity.Role, error) {
	var role identity.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, rank FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Role{}, shared.ErrNotFound
		}
		return identity.Role{}, err
	}
	return role, nil
}

var _ Repository = (*PGRepository)(nil)
