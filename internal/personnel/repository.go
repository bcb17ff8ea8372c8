package personnel

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// Repository defines persistence operations for the personnel registry.
type Repository interface {
	ListPeople(ctx context.Context) ([]Person, error)
	GetPerson(ctx context.Context, id int64) (Person, error)
	GetPeople(ctx context.Context, ids []int64) ([]Person, error)
	KeyRefs(ctx context.Context) ([]KeyRef, error)
	InsertPeople(ctx context.Context, people []PersonInput) error
	InsertPerson(ctx context.Context, input PersonInput) (Person, error)
	UpdatePerson(ctx context.Context, id int64, input PersonInput) (Person, error)
	UpdateTags(ctx context.Context, id int64, tags []string) (Person, error)
	DeletePeople(ctx context.Context, ids []int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const personColumns = `id, code, card_number, name, building, tags, created_at, updated_at`

func scanPerson(row pgx.Row) (Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.Code, &p.CardNumber, &p.Name, &p.Building, &p.Tags, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListPeople returns the registry ordered by name.
func (r *PGRepository) ListPeople(ctx context.Context) ([]Person, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+personColumns+` FROM personnel ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var people []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// GetPerson fetches one person by id.
func (r *PGRepository) GetPerson(ctx context.Context, id int64) (Person, error) {
	p, err := scanPerson(r.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM personnel WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, shared.ErrNotFound
		}
		return Person{}, err
	}
	return p, nil
}

// GetPeople fetches the given ids; missing ids are simply absent.
func (r *PGRepository) GetPeople(ctx context.Context, ids []int64) ([]Person, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+personColumns+` FROM personnel WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var people []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// KeyRefs returns the natural-key projection for import matching.
func (r *PGRepository) KeyRefs(ctx context.Context) ([]KeyRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, card_number FROM personnel`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []KeyRef
	for rows.Next() {
		var ref KeyRef
		if err := rows.Scan(&ref.ID, &ref.Code, &ref.CardNumber); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// InsertPeople bulk-inserts one chunk via pgx batching.
func (r *PGRepository) InsertPeople(ctx context.Context, people []PersonInput) error {
	batch := &pgx.Batch{}
	for _, p := range people {
		batch.Queue(`
			INSERT INTO personnel (code, card_number, name, building, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
			p.Code, p.CardNumber, p.Name, p.Building, p.Tags)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range people {
		if _, err := results.Exec(); err != nil {
			return mapUnique(err)
		}
	}
	return nil
}

// InsertPerson inserts a single person and returns the stored row.
func (r *PGRepository) InsertPerson(ctx context.Context, input PersonInput) (Person, error) {
	p, err := scanPerson(r.pool.QueryRow(ctx, `
		INSERT INTO personnel (code, card_number, name, building, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+personColumns,
		input.Code, input.CardNumber, input.Name, input.Building, input.Tags))
	if err != nil {
		return Person{}, mapUnique(err)
	}
	return p, nil
}

// UpdatePerson replaces the writable fields of an existing person.
func (r *PGRepository) UpdatePerson(ctx context.Context, id int64, input PersonInput) (Person, error) {
	p, err := scanPerson(r.pool.QueryRow(ctx, `
		UPDATE personnel
		SET code = $2, card_number = $3, name = $4, building = $5, tags = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+personColumns,
		id, input.Code, input.CardNumber, input.Name, input.Building, input.Tags))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, shared.ErrNotFound
		}
		return Person{}, mapUnique(err)
	}
	return p, nil
}

// UpdateTags replaces only the tag list.
func (r *PGRepository) UpdateTags(ctx context.Context, id int64, tags []string) (Person, error) {
	p, err := scanPerson(r.pool.QueryRow(ctx, `
		UPDATE personnel SET tags = $2, updated_at = NOW() WHERE id = $1 RETURNING `+personColumns,
		id, tags))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, shared.ErrNotFound
		}
		return Person{}, err
	}
	return p, nil
}

// DeletePeople removes the given ids.
func (r *PGRepository) DeletePeople(ctx context.Context, ids []int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM personnel WHERE id = ANY($1)`, ids)
	return err
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrConflict
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
