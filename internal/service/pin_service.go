package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/pingate/internal/domain"
	"github.com/fieldserve/pingate/internal/observability"
	"github.com/fieldserve/pingate/internal/repository"
	"github.com/fieldserve/pingate/internal/security"
)

type ValidationOutcome string

const (
	OutcomeGranted ValidationOutcome = "granted"
	OutcomeInvalid ValidationOutcome = "invalid"
	OutcomeLocked  ValidationOutcome = "locked"
)

// ValidationResult is the service-level answer to one PIN submission.
// AttemptsLeft is the remaining failure budget after this call.
type ValidationResult struct {
	Outcome      ValidationOutcome
	SessionID    string
	Token        string
	ExpiresAt    time.Time
	AttemptsLeft int
	LockedUntil  *time.Time
	Message      string
}

type PinStatus struct {
	AttemptsLeft int
	LockedUntil  *time.Time
}

type ValidateInput struct {
	ClientKey string
	IP        string
	UserAgent string
	Pin       string
}

type PinService struct {
	pinHash    string
	policy     LockoutPolicy
	lockouts   LockoutStore
	sessions   repository.SessionRepository
	attempts   repository.PinAttemptRepository
	jwtMgr     *security.JWTManager
	pepper     string
	sessionTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewPinService(
	pinHash string,
	policy LockoutPolicy,
	lockouts LockoutStore,
	sessions repository.SessionRepository,
	attempts repository.PinAttemptRepository,
	jwtMgr *security.JWTManager,
	pepper string,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *PinService {
	return &PinService{
		pinHash:    pinHash,
		policy:     policy,
		lockouts:   lockouts,
		sessions:   sessions,
		attempts:   attempts,
		jwtMgr:     jwtMgr,
		pepper:     pepper,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Status reports the remaining attempt budget and any active lock for a
// client key.
func (s *PinService) Status(ctx context.Context, clientKey string) (PinStatus, error) {
	state, err := s.lockouts.State(ctx, clientKey)
	if err != nil {
		return PinStatus{}, fmt.Errorf("lockout state: %w", err)
	}
	status := PinStatus{
		AttemptsLeft: s.attemptsLeft(state),
		LockedUntil:  state.LockedUntil,
	}
	observability.RecordStatusEvent(ctx, status.LockedUntil != nil, status.AttemptsLeft)
	return status, nil
}

// Validate is the sole gating operation. A lock in force short-circuits the
// comparison; the attempt is audited either way.
func (s *PinService) Validate(ctx context.Context, in ValidateInput) (ValidationResult, error) {
	state, err := s.lockouts.State(ctx, in.ClientKey)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("lockout state: %w", err)
	}
	if state.LockedUntil != nil {
		res := ValidationResult{
			Outcome:     OutcomeLocked,
			LockedUntil: state.LockedUntil,
			Message:     "too many failed attempts",
		}
		s.audit(ctx, in, false, 0)
		observability.RecordValidationEvent(ctx, string(OutcomeLocked), 0)
		return res, nil
	}

	if security.ComparePin(s.pinHash, in.Pin) {
		return s.grant(ctx, in)
	}

	state, err = s.lockouts.RecordFailure(ctx, in.ClientKey, s.policy)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("record failure: %w", err)
	}
	attemptsLeft := s.attemptsLeft(state)
	s.audit(ctx, in, false, attemptsLeft)

	if state.LockedUntil != nil {
		observability.RecordValidationEvent(ctx, string(OutcomeLocked), 0)
		return ValidationResult{
			Outcome:     OutcomeLocked,
			LockedUntil: state.LockedUntil,
			Message:     "too many failed attempts",
		}, nil
	}
	observability.RecordValidationEvent(ctx, string(OutcomeInvalid), attemptsLeft)
	return ValidationResult{
		Outcome:      OutcomeInvalid,
		AttemptsLeft: attemptsLeft,
		Message:      "invalid pin",
	}, nil
}

// Logout revokes the session behind a presented token. A token that fails
// signature checks is treated as already logged out.
func (s *PinService) Logout(ctx context.Context, raw string) error {
	if _, err := s.jwtMgr.ParseSessionToken(raw); err != nil {
		return nil
	}
	err := s.sessions.RevokeByTokenHash(security.HashSessionToken(raw, s.pepper))
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil
	}
	return err
}

// RecentAttempts lists the latest audit rows for a client key, newest first.
func (s *PinService) RecentAttempts(ctx context.Context, clientKey string, limit int) ([]domain.PinAttempt, error) {
	return s.attempts.ListRecent(clientKey, limit)
}

// VerifySessionToken checks a presented token against signature and the
// session table; revoked or expired rows invalidate an otherwise well-formed
// token.
func (s *PinService) VerifySessionToken(ctx context.Context, raw string) (*domain.Session, error) {
	if _, err := s.jwtMgr.ParseSessionToken(raw); err != nil {
		return nil, err
	}
	return s.sessions.FindActiveByTokenHash(security.HashSessionToken(raw, s.pepper))
}

func (s *PinService) grant(ctx context.Context, in ValidateInput) (ValidationResult, error) {
	if err := s.lockouts.Reset(ctx, in.ClientKey); err != nil {
		s.logger.Warn("lockout reset failed", "client_key", in.ClientKey, "error", err)
	}

	sessionID := uuid.NewString()
	token, err := s.jwtMgr.SignSessionToken(sessionID, in.ClientKey, s.sessionTTL)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("sign session token: %w", err)
	}
	expiresAt := s.now().UTC().Add(s.sessionTTL)
	session := &domain.Session{
		ID:        sessionID,
		TokenHash: security.HashSessionToken(token, s.pepper),
		ClientKey: in.ClientKey,
		IP:        in.IP,
		UserAgent: in.UserAgent,
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Create(session); err != nil {
		return ValidationResult{}, fmt.Errorf("create session: %w", err)
	}

	s.audit(ctx, in, true, s.policy.AttemptCeiling)
	observability.RecordValidationEvent(ctx, string(OutcomeGranted), s.policy.AttemptCeiling)
	return ValidationResult{
		Outcome:      OutcomeGranted,
		SessionID:    sessionID,
		Token:        token,
		ExpiresAt:    expiresAt,
		AttemptsLeft: s.policy.AttemptCeiling,
	}, nil
}

// audit records the attempt row. Audit failures are logged, never surfaced.
func (s *PinService) audit(ctx context.Context, in ValidateInput, success bool, attemptsLeft int) {
	err := s.attempts.Create(&domain.PinAttempt{
		ID:           uuid.NewString(),
		ClientKey:    in.ClientKey,
		IP:           in.IP,
		Success:      success,
		AttemptsLeft: attemptsLeft,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("pin attempt audit failed", "client_key", in.ClientKey, "error", err)
	}
}

func (s *PinService) attemptsLeft(state LockoutState) int {
	if state.LockedUntil != nil {
		return 0
	}
	left := s.policy.AttemptCeiling - state.Failures
	if left < 0 {
		return 0
	}
	return left
}
