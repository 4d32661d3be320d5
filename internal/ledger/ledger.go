// Package ledger keeps the short-lived verification records: the hashed
// email-confirmation token and the numeric password-reset code. Records live
// in Redis under per-user keys, so "at most one live record per user" falls
// out of plain SET semantics.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoRecord is returned when no live record exists for the user.
	ErrNoRecord = errors.New("no verification record")
)

const (
	emailKeyPrefix = "verify:email:"
	otpKeyPrefix   = "verify:otp:"

	// EmailTokenTTL bounds the email confirmation link.
	EmailTokenTTL = 24 * time.Hour
	// OTPTTL bounds the password-reset code.
	OTPTTL = 5 * time.Minute
)

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// EmailVerification links a user to the hash of their confirmation token.
type EmailVerification struct {
	TokenHash string    `json:"token_hash"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPRecord links a user to a 6-digit reset code.
type OTPRecord struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Ledger stores both record kinds.
type Ledger struct {
	redis redisCommander
}

// New creates a ledger over the given Redis client.
func New(client redisCommander) *Ledger {
	return &Ledger{redis: client}
}

// PutEmailToken stores a fresh email verification record, superseding any
// previous one for the user.
func (l *Ledger) PutEmailToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	now := time.Now().UTC()
	record := EmailVerification{
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: now.Add(EmailTokenTTL),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return l.redis.Set(ctx, emailKeyPrefix+userID.String(), payload, EmailTokenTTL).Err()
}

// GetEmailToken fetches the live record for the user, if any.
func (l *Ledger) GetEmailToken(ctx context.Context, userID uuid.UUID) (*EmailVerification, error) {
	raw, err := l.redis.Get(ctx, emailKeyPrefix+userID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoRecord
		}
		return nil, err
	}

	var record EmailVerification
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteEmailToken consumes the record.
func (l *Ledger) DeleteEmailToken(ctx context.Context, userID uuid.UUID) error {
	err := l.redis.Del(ctx, emailKeyPrefix+userID.String()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// PutOTP stores a fresh reset code, invalidating any prior one for the user.
// The key outlives ExpiresAt so expiry can be reported distinctly from a
// missing record; Redis reaps it afterwards.
func (l *Ledger) PutOTP(ctx context.Context, userID uuid.UUID, code string) error {
	now := time.Now().UTC()
	record := OTPRecord{
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(OTPTTL),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return l.redis.Set(ctx, otpKeyPrefix+userID.String(), payload, 2*OTPTTL).Err()
}

// GetOTP fetches the live reset code for the user, if any.
func (l *Ledger) GetOTP(ctx context.Context, userID uuid.UUID) (*OTPRecord, error) {
	raw, err := l.redis.Get(ctx, otpKeyPrefix+userID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoRecord
		}
		return nil, err
	}

	var record OTPRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteOTP consumes the reset code.
func (l *Ledger) DeleteOTP(ctx context.Context, userID uuid.UUID) error {
	err := l.redis.Del(ctx, otpKeyPrefix+userID.String()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Expired reports whether the record's deadline has passed.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Expired reports whether the link deadline has passed.
func (r *EmailVerification) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
