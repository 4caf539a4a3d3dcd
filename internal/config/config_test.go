package config

import (
	"strings"
	"testing"
	"time"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/pingate")
	t.Setenv("PIN_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("TOKEN_PEPPER", "0123456789abcdef")
	t.Setenv("SESSION_TOKEN_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AttemptCeiling != 5 {
		t.Fatalf("expected default attempt ceiling 5, got %d", cfg.AttemptCeiling)
	}
	if cfg.LockoutDuration != 5*time.Minute {
		t.Fatalf("expected default lockout 5m, got %v", cfg.LockoutDuration)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("expected default session ttl 1h, got %v", cfg.SessionTTL)
	}
	if cfg.RateLimitFailMode != "fail_closed" {
		t.Fatalf("unexpected fail mode %q", cfg.RateLimitFailMode)
	}
}

func TestLoadCollectsValidationErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PIN_HASH", "")
	t.Setenv("TOKEN_PEPPER", "short")
	t.Setenv("SESSION_TOKEN_SECRET", "short")
	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DATABASE_URL", "PIN_HASH", "TOKEN_PEPPER", "SESSION_TOKEN_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %v", want, err)
		}
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PIN_LOCKOUT_DURATION", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestLoadRejectsBadFailMode(t *testing.T) {
	setValidEnv(t)
	t.Setenv("RATE_LIMIT_FAIL_MODE", "shrug")
	if _, err := Load(); err == nil {
		t.Fatal("expected fail mode validation error")
	}
}
