package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// Repository defines persistence operations for role administration.
type Repository interface {
	ListRoles(ctx context.Context) ([]RoleWithPermissions, error)
	GetRole(ctx context.Context, id int64) (RoleWithPermissions, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListRoles returns all roles with their permission sets.
func (r *PGRepository) ListRoles(ctx context.Context) ([]RoleWithPermissions, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, rank, description FROM roles ORDER BY rank DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RoleWithPermissions
	for rows.Next() {
		var role RoleWithPermissions
		if err := rows.Scan(&role.ID, &role.Name, &role.Rank, &role.Description); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		perms, err := r.rolePermissions(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Permissions = perms
	}
	return result, nil
}

// GetRole fetches one role with its permissions.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (RoleWithPermissions, error) {
	var role RoleWithPermissions
	err := r.pool.QueryRow(ctx, `SELECT id, name, rank, description FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Rank, &role.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleWithPermissions{}, shared.ErrNotFound
		}
		return RoleWithPermissions{}, err
	}
	role.Permissions, err = r.rolePermissions(ctx, id)
	if err != nil {
		return RoleWithPermissions{}, err
	}
	return role, nil
}

// ListPermissions returns all permissions ordered by name.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// RolePermissionIDs returns the assigned permission ids for a role.
func (r *PGRepository) RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY permission_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplaceRolePermissions swaps the full permission set for a role with
// delete-then-reinsert semantics inside one transaction.
func (r *PGRepository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES ($1, $2, NOW())`,
			roleID, pid); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepository) rolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT perms.id, perms.name, perms.description
		FROM role_permissions rp
		JOIN permissions perms ON perms.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY perms.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
