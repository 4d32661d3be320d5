package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DSN", "postgres://localhost:5432/app")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Fatalf("port = %d", cfg.Port)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("session ttl = %v", cfg.SessionTTL)
	}
	if cfg.RateLimitPublic.RequestsPerSecond != 10 || cfg.RateLimitPublic.Burst != 20 {
		t.Fatalf("public rate limit = %+v", cfg.RateLimitPublic)
	}
	if cfg.RateLimitAuth.RequestsPerSecond != 10 || cfg.RateLimitAuth.Burst != 40 {
		t.Fatalf("auth rate limit = %+v", cfg.RateLimitAuth)
	}
}

func TestLoadRateLimitOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_PUBLIC_RPS", "2.5")
	t.Setenv("RATE_LIMIT_PUBLIC_BURST", "5")
	t.Setenv("RATE_LIMIT_AUTH_BURST", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.RateLimitPublic.RequestsPerSecond != 2.5 || cfg.RateLimitPublic.Burst != 5 {
		t.Fatalf("public rate limit = %+v", cfg.RateLimitPublic)
	}
	// unset keys keep their defaults
	if cfg.RateLimitAuth.RequestsPerSecond != 10 || cfg.RateLimitAuth.Burst != 100 {
		t.Fatalf("auth rate limit = %+v", cfg.RateLimitAuth)
	}
}

func TestLoadRejectsBadRateLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_PUBLIC_RPS", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("invalid RATE_LIMIT_PUBLIC_RPS accepted")
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("short JWT_SECRET accepted")
	}
}
