package request

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("document request not found")
	ErrInvalidKind       = errors.New("invalid document type")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// Kind identifies one of the four document request types. Its value is the
// slug used on the wire.
type Kind string

const (
	KindBarangayClearance Kind = "barangay-clearance"
	KindIndigency         Kind = "certificate-of-indigency"
	KindBusinessClearance Kind = "business-clearance"
	KindCedula            Kind = "cedula"
)

// Kinds lists all document types in feed order.
var Kinds = []Kind{KindBarangayClearance, KindIndigency, KindBusinessClearance, KindCedula}

// KindFromSlug matches a slug case-insensitively against the known kinds.
func KindFromSlug(slug string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(slug)))
	for _, k := range Kinds {
		if k == normalized {
			return k, true
		}
	}
	return "", false
}

// Label reconstructs the human-readable type name from the slug: hyphens
// become spaces and each word is capitalized.
func (k Kind) Label() string {
	words := strings.Split(string(k), "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Status is the shared review state for all document types.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCompleted Status = "Completed"
)

// ParseStatus matches a status value case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, true
	case "approved":
		return StatusApproved, true
	case "rejected":
		return StatusRejected, true
	case "completed":
		return StatusCompleted, true
	}
	return "", false
}

// transitions is the review state machine. Rejected and Completed are
// terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// CanTransition reports whether from → to is a legal status move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// requiredPayloadFields lists the type-specific fields a submission must
// carry, in addition to the shared requester fields.
var requiredPayloadFields = map[Kind][]string{
	KindBarangayClearance: {"address"},
	KindIndigency:         {"address"},
	KindBusinessClearance: {"business_name", "business_address", "nature_of_business"},
	KindCedula:            {"address", "date_of_birth", "civil_status", "occupation"},
}

// linkedKinds are the types whose records carry a user reference in
// addition to the denormalized requester fields.
var linkedKinds = map[Kind]bool{
	KindIndigency: true,
	KindCedula:    true,
}

// RequiresRequesterLink reports whether submissions of this kind must
// reference the authenticated user.
func (k Kind) RequiresRequesterLink() bool {
	return linkedKinds[k]
}

// Request is a document request of any kind. Type-specific fields live in
// Payload.
type Request struct {
	ID             uuid.UUID      `json:"id"`
	Kind           Kind           `json:"kind"`
	Barangay       string         `json:"barangay"`
	RequesterID    *uuid.UUID     `json:"requester_id,omitempty"`
	ResidentName   string         `json:"resident_name"`
	ContactNumber  string         `json:"contact_number"`
	Purpose        string         `json:"purpose"`
	Payload        map[string]any `json:"payload"`
	Status         Status         `json:"status"`
	LegacyVerified bool           `json:"-"`
	DateOfIssuance *time.Time     `json:"date_of_issuance,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Envelope is the common shape every entry of the combined feed maps into.
type Envelope struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	RequestDate    time.Time      `json:"requestDate"`
	ResidentName   string         `json:"residentName"`
	Status         Status         `json:"status"`
	Purpose        string         `json:"purpose"`
	DateOfIssuance *time.Time     `json:"dateOfIssuance,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// Envelope maps the request into the combined-feed shape. A missing status
// defaults to Pending.
func (r Request) Envelope() Envelope {
	status := r.Status
	if status == "" {
		status = StatusPending
	}
	return Envelope{
		ID:             r.ID.String(),
		Type:           r.Kind.Label(),
		RequestDate:    r.CreatedAt,
		ResidentName:   r.ResidentName,
		Status:         status,
		Purpose:        r.Purpose,
		DateOfIssuance: r.DateOfIssuance,
		Extra:          r.Payload,
	}
}

// CreateInput holds a citizen submission.
type CreateInput struct {
	Kind          Kind
	Barangay      string
	RequesterID   *uuid.UUID
	ResidentName  string
	ContactNumber string
	Purpose       string
	Payload       map[string]any
}

// Validate checks the shared and type-specific required fields.
func (in CreateInput) Validate() error {
	if _, ok := KindFromSlug(string(in.Kind)); !ok {
		return ErrInvalidKind
	}
	if strings.TrimSpace(in.ResidentName) == "" {
		return errors.New("resident name is required")
	}
	if strings.TrimSpace(in.Barangay) == "" {
		return errors.New("barangay is required")
	}
	if strings.TrimSpace(in.Purpose) == "" {
		return errors.New("purpose is required")
	}
	if in.Kind.RequiresRequesterLink() && in.RequesterID == nil {
		return errors.New("requester reference is required")
	}
	for _, field := range requiredPayloadFields[in.Kind] {
		v, ok := in.Payload[field]
		if !ok {
			return errors.New(field + " is required")
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
	}
	return nil
}
