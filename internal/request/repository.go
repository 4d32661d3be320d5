package request

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, kind, barangay, requester_id, resident_name, contact_number, purpose, payload, status, legacy_verified, date_of_issuance, created_at, updated_at`

// Repository stores all document kinds in one table keyed by kind.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the document request repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a submission with status Pending.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Request, error) {
	const query = `
        INSERT INTO document_requests (kind, barangay, requester_id, resident_name, contact_number, purpose, payload, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + columns

	payload := input.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, query,
		string(input.Kind),
		strings.TrimSpace(input.Barangay),
		input.RequesterID,
		strings.TrimSpace(input.ResidentName),
		strings.TrimSpace(input.ContactNumber),
		strings.TrimSpace(input.Purpose),
		payloadJSON,
		string(StatusPending),
	)
	return scanRequest(row)
}

// Get fetches one request by kind and id.
func (r *Repository) Get(ctx context.Context, kind Kind, id uuid.UUID) (*Request, error) {
	const query = `SELECT ` + columns + ` FROM document_requests WHERE kind = $1 AND id = $2`
	row := r.pool.QueryRow(ctx, query, string(kind), id)
	return scanRequest(row)
}

// ListByBarangay returns one kind's requests for a barangay, newest first.
func (r *Repository) ListByBarangay(ctx context.Context, barangay string, kind Kind) ([]Request, error) {
	const query = `
        SELECT ` + columns + `
        FROM document_requests
        WHERE barangay = $1 AND kind = $2
        ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, barangay, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// UpdateStatusParams carries a status mutation. Only the status field and
// its derived columns are touched.
type UpdateStatusParams struct {
	Kind           Kind
	ID             uuid.UUID
	Status         Status
	LegacyVerified *bool
	DateOfIssuance *time.Time
}

// UpdateStatus applies a targeted field-set and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, arg UpdateStatusParams) (*Request, error) {
	const query = `
        UPDATE document_requests
        SET status = $3,
            legacy_verified = COALESCE($4, legacy_verified),
            date_of_issuance = COALESCE($5, date_of_issuance),
            updated_at = now()
        WHERE kind = $1 AND id = $2
        RETURNING ` + columns

	row := r.pool.QueryRow(ctx, query, string(arg.Kind), arg.ID, string(arg.Status), arg.LegacyVerified, arg.DateOfIssuance)
	return scanRequest(row)
}

func scanRequest(row pgx.Row) (*Request, error) {
	var (
		req        Request
		kind       string
		status     string
		payloadRaw []byte
	)
	err := row.Scan(&req.ID, &kind, &req.Barangay, &req.RequesterID, &req.ResidentName, &req.ContactNumber,
		&req.Purpose, &payloadRaw, &status, &req.LegacyVerified, &req.DateOfIssuance, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	req.Kind = Kind(kind)
	req.Status = Status(status)

	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &req.Payload); err != nil {
			return nil, err
		}
	}
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}

	return &req, nil
}
