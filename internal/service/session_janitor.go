package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldserve/pingate/internal/repository"
)

// SessionJanitor deletes expired and revoked session rows on a fixed cadence.
// Expiry is already enforced at read time; this only keeps the table small.
type SessionJanitor struct {
	sessions repository.SessionRepository
	interval time.Duration
	logger   *slog.Logger
}

func NewSessionJanitor(sessions repository.SessionRepository, interval time.Duration, logger *slog.Logger) *SessionJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionJanitor{sessions: sessions, interval: interval, logger: logger}
}

// Run blocks until ctx is done, sweeping once per interval.
func (j *SessionJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

func (j *SessionJanitor) Sweep() {
	removed, err := j.sessions.CleanupExpired()
	if err != nil {
		j.logger.Warn("session cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Info("expired sessions removed", "count", removed)
	}
}
