package repo

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles recognized by the permission table.
const (
	RoleUser      = "user"
	RoleSecretary = "secretary"
	RoleChairman  = "chairman"
	RoleAdmin     = "admin"
)

var validRoles = map[string]struct{}{
	RoleUser:      {},
	RoleSecretary: {},
	RoleChairman:  {},
	RoleAdmin:     {},
}

// NormalizeRole lowercases and trims a role name, defaulting to "user".
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return RoleUser
	}
	return role
}

// IsValidRole reports whether the role is recognized.
func IsValidRole(role string) bool {
	_, ok := validRoles[role]
	return ok
}

// User is the identity record. Password hashes never leave this package's
// callers; the HTTP layer serializes PublicUser instead.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Barangay     string
	Role         string
	Verified     bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection embedded in session tokens and responses.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Barangay  string    `json:"barangay"`
	Role      string    `json:"role"`
	Verified  bool      `json:"isVerified"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public strips the credential fields from a User.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Barangay:  u.Barangay,
		Role:      u.Role,
		Verified:  u.Verified,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
