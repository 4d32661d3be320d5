package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims carries the public user projection inside the session token.
// Purpose is empty on session tokens; single-purpose tokens set it and are
// refused by the access guard.
type SessionClaims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Barangay  string `json:"barangay,omitempty"`
	Verified  bool   `json:"isVerified,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// PurposePasswordReset marks the correlation token handed out when a
// password reset starts.
const PurposePasswordReset = "password-reset"

// resetTokenTTL matches the reset code window.
const resetTokenTTL = 5 * time.Minute

// JWTManager wraps token generation and validation.
type JWTManager struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewJWTManager creates the manager with the configured secret and TTL.
func NewJWTManager(secret string, sessionTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), sessionTTL: sessionTTL}
}

// SessionTTL returns the configured token lifetime.
func (m *JWTManager) SessionTTL() time.Duration {
	return m.sessionTTL
}

// GenerateSessionToken creates an HS256 JWT with the given projection.
func (m *JWTManager) GenerateSessionToken(claims SessionClaims) (string, error) {
	now := time.Now().UTC()

	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(m.sessionTTL))
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateResetToken issues the short-lived token that correlates the
// forgot-password and verify-otp steps. It carries only the subject and a
// purpose claim, so it cannot be replayed as a session.
func (m *JWTManager) GenerateResetToken(subject string) (string, error) {
	now := time.Now().UTC()

	claims := SessionClaims{Purpose: PurposePasswordReset}
	claims.RegisteredClaims.Subject = subject
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(resetTokenTTL))
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAndValidate checks signature and expiry.
func (m *JWTManager) ParseAndValidate(tokenString string) (*SessionClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
