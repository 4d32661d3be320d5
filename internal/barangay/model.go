package barangay

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("barangay not found")
)

// Barangay is the partition unit every record in the system belongs to.
type Barangay struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	DisplayName  string    `json:"display_name"`
	Municipality string    `json:"municipality"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateInput holds the fields needed to register a barangay.
type CreateInput struct {
	Slug         string
	DisplayName  string
	Municipality string
}
