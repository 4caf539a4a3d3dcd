package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	// PinHash is the bcrypt hash of the gate PIN. The plaintext PIN is never
	// configured directly.
	PinHash     string
	TokenPepper string

	SessionTokenSecret string
	SessionIssuer      string
	SessionAudience    string
	SessionTTL         time.Duration

	AttemptCeiling  int
	FailureWindow   time.Duration
	LockoutDuration time.Duration

	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string

	PinRateLimitPerMin    int
	RateLimitFailMode     string
	RateLimitBypassProbes bool
	RateLimitTrustedCIDRs []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		PinHash:               os.Getenv("PIN_HASH"),
		TokenPepper:           os.Getenv("TOKEN_PEPPER"),
		SessionTokenSecret:    os.Getenv("SESSION_TOKEN_SECRET"),
		SessionIssuer:         getEnv("SESSION_ISSUER", "pingate"),
		SessionAudience:       getEnv("SESSION_AUDIENCE", "pingate-clients"),
		AttemptCeiling:        getEnvInt("PIN_ATTEMPT_CEILING", 5),
		CookieDomain:          os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:          getEnvBool("COOKIE_SECURE", true),
		CookieSameSite:        strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),
		PinRateLimitPerMin:    getEnvInt("PIN_RATE_LIMIT_PER_MIN", 30),
		RateLimitFailMode:     strings.ToLower(getEnv("RATE_LIMIT_FAIL_MODE", "fail_closed")),
		RateLimitBypassProbes: getEnvBool("RATE_LIMIT_BYPASS_PROBES", true),
	}
	if raw := strings.TrimSpace(os.Getenv("RATE_LIMIT_TRUSTED_CIDRS")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if v := strings.TrimSpace(part); v != "" {
				cfg.RateLimitTrustedCIDRs = append(cfg.RateLimitTrustedCIDRs, v)
			}
		}
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = sessionTTL

	failureWindow, err := time.ParseDuration(getEnv("PIN_FAILURE_WINDOW", "15m"))
	if err != nil {
		return nil, fmt.Errorf("parse PIN_FAILURE_WINDOW: %w", err)
	}
	cfg.FailureWindow = failureWindow

	lockout, err := time.ParseDuration(getEnv("PIN_LOCKOUT_DURATION", "5m"))
	if err != nil {
		return nil, fmt.Errorf("parse PIN_LOCKOUT_DURATION: %w", err)
	}
	cfg.LockoutDuration = lockout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.PinHash == "" {
		errs = append(errs, "PIN_HASH is required")
	}
	if len(c.TokenPepper) < 16 {
		errs = append(errs, "TOKEN_PEPPER must be at least 16 chars")
	}
	if len(c.SessionTokenSecret) < 32 {
		errs = append(errs, "SESSION_TOKEN_SECRET must be at least 32 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > 24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1s and 24h")
	}
	if c.AttemptCeiling <= 0 {
		errs = append(errs, "PIN_ATTEMPT_CEILING must be > 0")
	}
	if c.FailureWindow <= 0 {
		errs = append(errs, "PIN_FAILURE_WINDOW must be > 0")
	}
	if c.LockoutDuration <= 0 {
		errs = append(errs, "PIN_LOCKOUT_DURATION must be > 0")
	}
	if c.PinRateLimitPerMin <= 0 {
		errs = append(errs, "PIN_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RateLimitFailMode != "fail_open" && c.RateLimitFailMode != "fail_closed" {
		errs = append(errs, "RATE_LIMIT_FAIL_MODE must be fail_open or fail_closed")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
