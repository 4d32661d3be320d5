package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return redis.NewStatusResult("", redis.ErrClosed)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if v, ok := f.values[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			delete(f.ttls, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestEmailTokenRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	l := New(fake)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := l.GetEmailToken(ctx, userID); err != ErrNoRecord {
		t.Fatalf("empty ledger: want ErrNoRecord, got %v", err)
	}

	if err := l.PutEmailToken(ctx, userID, "hash-1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := l.GetEmailToken(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.TokenHash != "hash-1" {
		t.Fatalf("hash = %q", rec.TokenHash)
	}
	if rec.Expired(time.Now().UTC()) {
		t.Fatal("fresh record reports expired")
	}
	if ttl := fake.ttls[emailKeyPrefix+userID.String()]; ttl != EmailTokenTTL {
		t.Fatalf("ttl = %v, want %v", ttl, EmailTokenTTL)
	}

	// a second put supersedes the first
	if err := l.PutEmailToken(ctx, userID, "hash-2"); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec, err = l.GetEmailToken(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.TokenHash != "hash-2" {
		t.Fatalf("hash = %q, want hash-2", rec.TokenHash)
	}

	if err := l.DeleteEmailToken(ctx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := l.GetEmailToken(ctx, userID); err != ErrNoRecord {
		t.Fatalf("after delete: want ErrNoRecord, got %v", err)
	}
	// deleting again is a no-op
	if err := l.DeleteEmailToken(ctx, userID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestOTPRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	l := New(fake)
	ctx := context.Background()
	userID := uuid.New()

	if err := l.PutOTP(ctx, userID, "123456"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := l.GetOTP(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Code != "123456" {
		t.Fatalf("code = %q", rec.Code)
	}
	if got, want := rec.ExpiresAt.Sub(rec.CreatedAt), OTPTTL; got != want {
		t.Fatalf("window = %v, want %v", got, want)
	}

	// the key outlives the record window so expiry stays reportable
	if ttl := fake.ttls[otpKeyPrefix+userID.String()]; ttl != 2*OTPTTL {
		t.Fatalf("ttl = %v, want %v", ttl, 2*OTPTTL)
	}

	if err := l.DeleteOTP(ctx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := l.GetOTP(ctx, userID); err != ErrNoRecord {
		t.Fatalf("after delete: want ErrNoRecord, got %v", err)
	}
}

func TestRecordsAreIndependentPerUser(t *testing.T) {
	fake := newFakeRedis()
	l := New(fake)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if err := l.PutOTP(ctx, alice, "111111"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := l.PutOTP(ctx, bob, "222222"); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := l.DeleteOTP(ctx, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec, err := l.GetOTP(ctx, bob)
	if err != nil {
		t.Fatalf("bob's record gone: %v", err)
	}
	if rec.Code != "222222" {
		t.Fatalf("code = %q", rec.Code)
	}
}
