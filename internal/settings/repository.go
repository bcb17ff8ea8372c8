package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// Repository defines persistence for settings and registration codes.
type Repository interface {
	ListSettings(ctx context.Context) ([]Setting, error)
	GetSetting(ctx context.Context, key string) (Setting, error)
	UpsertSetting(ctx context.Context, key string, value json.RawMessage) (Setting, error)

	ListCodes(ctx context.Context) ([]RegistrationCode, error)
	GetCode(ctx context.Context, id int64) (RegistrationCode, error)
	CodeByValue(ctx context.Context, code string) (RegistrationCode, error)
	InsertCode(ctx context.Context, input CodeInput, createdBy string) (RegistrationCode, error)
	UpdateCode(ctx context.Context, id int64, input CodeInput) (RegistrationCode, error)
	DeleteCode(ctx context.Context, id int64) error
	ConsumeCodeUse(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListSettings returns every stored setting.
func (r *PGRepository) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSetting fetches one setting by key.
func (r *PGRepository) GetSetting(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx, `SELECT key, value FROM settings WHERE key = $1`, key).Scan(&s.Key, &s.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, shared.ErrNotFound
		}
		return Setting{}, err
	}
	return s, nil
}

// UpsertSetting writes a setting, inserting or replacing by key.
func (r *PGRepository) UpsertSetting(ctx context.Context, key string, value json.RawMessage) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING key, value`, key, value).Scan(&s.Key, &s.Value)
	return s, err
}

const codeSelect = `
	SELECT rc.id, rc.code, rc.role_id, rc.uses_left, rc.expires_at,
	       COALESCE(rc.created_by::text, ''), COALESCE(p.nickname, ''), rc.created_at
	FROM registration_codes rc
	LEFT JOIN profiles p ON p.id = rc.created_by`

func scanCode(row pgx.Row) (RegistrationCode, error) {
	var c RegistrationCode
	err := row.Scan(&c.ID, &c.Code, &c.RoleID, &c.UsesLeft, &c.ExpiresAt,
		&c.CreatedBy, &c.CreatedByNickname, &c.CreatedAt)
	return c, err
}

// ListCodes returns all registration codes, newest first.
func (r *PGRepository) ListCodes(ctx context.Context) ([]RegistrationCode, error) {
	rows, err := r.pool.Query(ctx, codeSelect+` ORDER BY rc.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegistrationCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCode fetches one code by id.
func (r *PGRepository) GetCode(ctx context.Context, id int64) (RegistrationCode, error) {
	c, err := scanCode(r.pool.QueryRow(ctx, codeSelect+` WHERE rc.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RegistrationCode{}, shared.ErrNotFound
		}
		return RegistrationCode{}, err
	}
	return c, nil
}

// CodeByValue fetches one code by its code string.
func (r *PGRepository) CodeByValue(ctx context.Context, code string) (RegistrationCode, error) {
	c, err := scanCode(r.pool.QueryRow(ctx, codeSelect+` WHERE rc.code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RegistrationCode{}, shared.ErrNotFound
		}
		return RegistrationCode{}, err
	}
	return c, nil
}

// InsertCode creates a new registration code.
func (r *PGRepository) InsertCode(ctx context.Context, input CodeInput, createdBy string) (RegistrationCode, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO registration_codes (code, role_id, uses_left, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, NOW())
		RETURNING id`,
		input.Code, input.RoleID, input.UsesLeft, input.ExpiresAt, createdBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return RegistrationCode{}, shared.ErrConflict
		}
		return RegistrationCode{}, err
	}
	return r.GetCode(ctx, id)
}

// UpdateCode replaces a code's writable fields.
func (r *PGRepository) UpdateCode(ctx context.Context, id int64, input CodeInput) (RegistrationCode, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE registration_codes
		SET code = $2, role_id = $3, uses_left = $4, expires_at = $5
		WHERE id = $1`,
		id, input.Code, input.RoleID, input.UsesLeft, input.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return RegistrationCode{}, shared.ErrConflict
		}
		return RegistrationCode{}, err
	}
	if tag.RowsAffected() == 0 {
		return RegistrationCode{}, shared.ErrNotFound
	}
	return r.GetCode(ctx, id)
}

// DeleteCode removes a code.
func (r *PGRepository) DeleteCode(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registration_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ConsumeCodeUse decrements a code's remaining uses, refusing to go
// below zero.
func (r *PGRepository) ConsumeCodeUse(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE registration_codes SET uses_left = uses_left - 1
		WHERE id = $1 AND uses_left > 0`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConflict
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
