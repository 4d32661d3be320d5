package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, barangay, role, is_verified, is_active, created_at, updated_at`

// Queries provides access to the users table.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates the query layer over a pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// InsertUserParams holds the fields required to create a user.
type InsertUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Barangay     string
	Role         string
	Verified     bool
}

// InsertUser creates a user and returns the stored record.
func (q *Queries) InsertUser(ctx context.Context, arg InsertUserParams) (User, error) {
	const query = `
        INSERT INTO users (name, email, password_hash, barangay, role, is_verified)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + userColumns

	row := q.pool.QueryRow(ctx, query,
		strings.TrimSpace(arg.Name),
		strings.ToLower(strings.TrimSpace(arg.Email)),
		arg.PasswordHash,
		strings.TrimSpace(arg.Barangay),
		arg.Role,
		arg.Verified,
	)
	return scanUser(row)
}

// GetUserByEmail looks a user up by normalized email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	row := q.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// GetUserByName looks a user up by exact name. Name uniqueness is enforced
// by pre-check at signup rather than a unique index.
func (q *Queries) GetUserByName(ctx context.Context, name string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE name = $1`
	row := q.pool.QueryRow(ctx, query, strings.TrimSpace(name))
	return scanUser(row)
}

// GetUserByID fetches a user by id.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	row := q.pool.QueryRow(ctx, query, id)
	return scanUser(row)
}

// ListUsersByBarangay returns the barangay's users, newest first.
func (q *Queries) ListUsersByBarangay(ctx context.Context, barangay string) ([]User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE barangay = $1 ORDER BY created_at DESC`

	rows, err := q.pool.Query(ctx, query, barangay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetUserVerified flips the verification flag.
func (q *Queries) SetUserVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return q.execOne(ctx, `UPDATE users SET is_verified = $2, updated_at = now() WHERE id = $1`, id, verified)
}

// SetUserActive toggles account activation.
func (q *Queries) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	return q.execOne(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
}

// UpdateUserPassword replaces the stored password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return q.execOne(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (q *Queries) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := q.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Barangay, &u.Role, &u.Verified, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
