package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centralizes configuration loaded from the environment.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTSecret       string
	SessionTTL      time.Duration
	AppBaseURL      string
	PortalBaseURL   string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Mail            MailConfig
}

// RateLimitConfig holds simple throttling limits.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// MailConfig describes the transactional mail API. When APIKey is empty the
// server falls back to a logging mailer.
type MailConfig struct {
	APIBaseURL string
	APIKey     string
	From       string
}

// Load reads environment variables and applies safe defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("invalid PORT")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = sessionTTL

	cfg.AppBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("APP_BASE_URL", "http://localhost:8080")), "/")

	// the browser lands here after following a verification link
	cfg.PortalBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("PORTAL_BASE_URL", "http://localhost:5173")), "/")

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	if cfg.RateLimitPublic, err = parseRateLimitEnv("RATE_LIMIT_PUBLIC", RateLimitConfig{RequestsPerSecond: 10, Burst: 20}); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimitEnv("RATE_LIMIT_AUTH", RateLimitConfig{RequestsPerSecond: 10, Burst: 40}); err != nil {
		return nil, err
	}

	cfg.Mail = MailConfig{
		APIBaseURL: strings.TrimRight(strings.TrimSpace(getEnv("MAIL_API_URL", "https://api.resend.com")), "/"),
		APIKey:     strings.TrimSpace(getEnv("MAIL_API_KEY", "")),
		From:       strings.TrimSpace(getEnv("MAIL_FROM", "no-reply@sentrolokal.ph")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

// parseRateLimitEnv reads <prefix>_RPS and <prefix>_BURST, keeping the given
// defaults for unset keys.
func parseRateLimitEnv(prefix string, def RateLimitConfig) (RateLimitConfig, error) {
	cfg := def

	if val := getEnv(prefix+"_RPS", ""); val != "" {
		rps, err := strconv.ParseFloat(val, 64)
		if err != nil || rps <= 0 {
			return RateLimitConfig{}, errors.New("invalid " + prefix + "_RPS")
		}
		cfg.RequestsPerSecond = rps
	}
	if val := getEnv(prefix+"_BURST", ""); val != "" {
		burst, err := strconv.Atoi(val)
		if err != nil || burst <= 0 {
			return RateLimitConfig{}, errors.New("invalid " + prefix + "_BURST")
		}
		cfg.Burst = burst
	}
	return cfg, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return dur, nil
}
