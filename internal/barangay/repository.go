package barangay

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, slug, display_name, municipality, created_at, updated_at`

// Repository provides access to barangay storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new barangay repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetBySlug finds a barangay by its normalized slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Barangay, error) {
	const query = `SELECT ` + columns + ` FROM barangays WHERE slug = $1`
	row := r.pool.QueryRow(ctx, query, slug)
	return scanBarangay(row)
}

// List returns all barangays ordered by creation.
func (r *Repository) List(ctx context.Context) ([]Barangay, error) {
	const query = `SELECT ` + columns + ` FROM barangays ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var barangays []Barangay
	for rows.Next() {
		b, err := scanBarangay(rows)
		if err != nil {
			return nil, err
		}
		barangays = append(barangays, *b)
	}
	return barangays, rows.Err()
}

// Create inserts a new barangay and returns the persisted record.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Barangay, error) {
	const query = `
        INSERT INTO barangays (slug, display_name, municipality)
        VALUES ($1, $2, $3)
        RETURNING ` + columns

	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(strings.ToLower(input.Slug)),
		strings.TrimSpace(input.DisplayName),
		strings.TrimSpace(input.Municipality),
	)
	return scanBarangay(row)
}

func scanBarangay(row pgx.Row) (*Barangay, error) {
	var b Barangay
	if err := row.Scan(&b.ID, &b.Slug, &b.DisplayName, &b.Municipality, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
