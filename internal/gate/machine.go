// Package gate implements the PIN access gate: a small state machine that
// fronts a protected surface with a six-digit keypad, a persisted session
// pass, and a client-side lockout mirror of the server's attempt budget.
package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldserve/pingate/internal/domain"
	"github.com/fieldserve/pingate/internal/gate/store"
	"github.com/fieldserve/pingate/internal/pinclient"
)

type State string

const (
	StateInitializing State = "initializing"
	StateKeypad       State = "keypad"
	StateSubmitting   State = "submitting"
	StateLocked       State = "locked"
	StateSuccess      State = "success"
)

// DefaultAttempts matches the server's default attempt ceiling. It is shown
// only until the first status response; the displayed budget is otherwise
// server-authoritative.
const DefaultAttempts = 5

// defaultLockoutDuration covers the degenerate case of a locked response
// that carries no deadline.
const defaultLockoutDuration = 5 * time.Minute

// Validator is the remote side of the gate. *pinclient.Client satisfies it.
type Validator interface {
	GetStatus(ctx context.Context) (pinclient.Status, error)
	Validate(ctx context.Context, pin string) (pinclient.Result, error)
	HasSessionCookie() bool
}

// Snapshot is an immutable view of the machine for rendering.
type Snapshot struct {
	State        State
	Entered      int
	AttemptsLeft int
	Countdown    string
	LockedUntil  time.Time
	Message      string
	Pulse        bool
}

type Machine struct {
	mu           sync.Mutex
	state        State
	buffer       Buffer
	attemptsLeft int
	countdown    string
	lockedUntil  time.Time
	message      string
	pulse        bool

	store        store.Store
	validator    Validator
	timer        *lockoutTimer
	tickInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time

	onChange   func()
	onRedirect func(sessionID string)
}

type Option func(*Machine)

func WithLogger(l *slog.Logger) Option { return func(m *Machine) { m.logger = l } }

func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// WithTickInterval overrides the one-second countdown cadence.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.tickInterval = d }
}

// WithOnChange registers a hook fired after every observable transition. It
// runs with the machine lock held and must not call back into the machine.
func WithOnChange(fn func()) Option { return func(m *Machine) { m.onChange = fn } }

// WithOnRedirect registers the hook fired once when access is granted.
func WithOnRedirect(fn func(sessionID string)) Option {
	return func(m *Machine) { m.onRedirect = fn }
}

func NewMachine(st store.Store, validator Validator, opts ...Option) *Machine {
	m := &Machine{
		state:        StateInitializing,
		attemptsLeft: DefaultAttempts,
		store:        st,
		validator:    validator,
		logger:       slog.New(slog.DiscardHandler),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.timer = newLockoutTimer(m.tickInterval, m.now)
	return m
}

// Bootstrap reconciles persisted state with the remote status and settles the
// machine into Keypad, Locked, or a direct grant. A locally persisted lockout
// takes effect before the network round trip and is never cleared by a failed
// status call. The session check is skipped entirely while locked.
func (m *Machine) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInitializing {
		return
	}

	if info := m.store.ReadLockout(); info != nil && info.Active(m.now()) {
		m.enterLocked(info.LockedUntil, false)
	}

	status, err := m.validator.GetStatus(ctx)
	if err != nil {
		m.logger.Warn("pin status check failed, keeping local state", "error", err)
	} else {
		if status.AttemptsLeft != pinclient.AttemptsUnknown {
			m.attemptsLeft = status.AttemptsLeft
		}
		if status.LockedUntil != nil && m.now().Before(*status.LockedUntil) {
			m.enterLocked(*status.LockedUntil, true)
		} else if m.state != StateLocked {
			m.store.ClearLockout()
		}
	}

	if m.state == StateLocked {
		m.notify()
		return
	}

	if sess := m.store.ReadSession(); sess != nil {
		m.grant(sess.SessionID)
		return
	}
	if m.validator.HasSessionCookie() {
		m.grant("")
		return
	}

	m.state = StateKeypad
	m.notify()
}

// Handle feeds one keypad event through the machine. Events are dropped
// unless the machine is in Keypad state, so input during Submitting, Locked,
// and Success has no effect. Submit is a no-op until the buffer is full, and
// only one validation is ever in flight.
func (m *Machine) Handle(ctx context.Context, ev Event) {
	m.mu.Lock()
	if m.state != StateKeypad {
		m.mu.Unlock()
		return
	}

	switch e := ev.(type) {
	case DigitEvent:
		if m.buffer.Append(e.Digit) {
			m.message = ""
			m.pulse = false
			m.notify()
		}
		m.mu.Unlock()
		return
	case DeleteEvent:
		m.buffer.Delete()
		m.notify()
		m.mu.Unlock()
		return
	case SubmitEvent:
		if !m.buffer.Full() {
			m.mu.Unlock()
			return
		}
		pin := m.buffer.String()
		m.state = StateSubmitting
		m.notify()
		m.mu.Unlock()

		res, err := m.validator.Validate(ctx, pin)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state != StateSubmitting {
			return
		}
		m.applyValidation(res, err)
		return
	default:
		m.mu.Unlock()
		return
	}
}

// applyValidation settles a Submitting machine. The buffer survives until the
// outcome lands so a transport blip never silently discards typed digits.
func (m *Machine) applyValidation(res pinclient.Result, err error) {
	if err != nil {
		m.logger.Warn("pin validation request failed", "error", err)
		m.state = StateKeypad
		m.buffer.Reset()
		m.message = "Could not reach the validation service. Try again."
		m.pulse = true
		m.notify()
		return
	}

	switch res.Outcome {
	case pinclient.OutcomeGranted:
		m.store.WriteSession(domain.StoredSession{SessionID: res.SessionID, ExpiresAt: res.ExpiresAt})
		m.store.ClearLockout()
		m.buffer.Reset()
		m.grant(res.SessionID)
	case pinclient.OutcomeLocked:
		m.buffer.Reset()
		until := m.now().Add(defaultLockoutDuration)
		if res.LockedUntil != nil {
			until = *res.LockedUntil
		}
		m.enterLocked(until, true)
		m.notify()
	case pinclient.OutcomeRateLimited:
		m.state = StateKeypad
		m.buffer.Reset()
		m.message = "Too many requests. Wait a moment and try again."
		m.pulse = true
		m.notify()
	default:
		m.state = StateKeypad
		m.buffer.Reset()
		if res.AttemptsLeft != pinclient.AttemptsUnknown {
			m.attemptsLeft = res.AttemptsLeft
		}
		m.message = "Incorrect PIN. Try again."
		if res.Message != "" {
			m.message = res.Message
		}
		m.pulse = true
		m.notify()
	}
}

func (m *Machine) grant(sessionID string) {
	m.state = StateSuccess
	m.message = ""
	m.pulse = false
	m.notify()
	if m.onRedirect != nil {
		m.onRedirect(sessionID)
	}
}

// enterLocked is called with the machine lock held. A lock that does not
// extend the current deadline is ignored so a stale status response cannot
// shorten an active countdown.
func (m *Machine) enterLocked(until time.Time, persist bool) {
	if m.state == StateLocked && !until.After(m.lockedUntil) {
		return
	}
	m.state = StateLocked
	m.lockedUntil = until
	m.buffer.Reset()
	m.message = ""
	m.pulse = false
	m.countdown = FormatCountdown(until.Sub(m.now()))
	if persist {
		m.store.WriteLockout(domain.LockoutInfo{
			IsLocked:    true,
			LockedUntil: until,
			Timestamp:   m.now(),
		})
	}
	m.timer.Start(until, func(countdown string, expired bool) {
		m.handleTick(until, countdown, expired)
	})
}

func (m *Machine) handleTick(until time.Time, countdown string, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// ticks from a superseded countdown are ignored
	if m.state != StateLocked || !until.Equal(m.lockedUntil) {
		return
	}
	if expired {
		m.store.ClearLockout()
		m.state = StateKeypad
		m.countdown = ""
		m.notify()
		go m.refreshBudget(context.Background())
		return
	}
	m.countdown = countdown
	m.notify()
}

// refreshBudget re-reads the server's attempt budget after a lockout expires.
// The budget is never computed client-side, so a failed call leaves the last
// server-reported value in place.
func (m *Machine) refreshBudget(ctx context.Context) {
	status, err := m.validator.GetStatus(ctx)
	if err != nil {
		m.logger.Warn("attempt budget refresh failed", "error", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateKeypad {
		return
	}
	if status.AttemptsLeft != pinclient.AttemptsUnknown {
		m.attemptsLeft = status.AttemptsLeft
	}
	if status.LockedUntil != nil && m.now().Before(*status.LockedUntil) {
		m.enterLocked(*status.LockedUntil, true)
		m.notify()
		return
	}
	m.notify()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:        m.state,
		Entered:      m.buffer.Len(),
		AttemptsLeft: m.attemptsLeft,
		Countdown:    m.countdown,
		LockedUntil:  m.lockedUntil,
		Message:      m.message,
		Pulse:        m.pulse,
	}
}

// AcceptingInput reports whether keypad events would currently be honored.
func (m *Machine) AcceptingInput() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateKeypad
}

// Close stops the countdown goroutine if one is running.
func (m *Machine) Close() {
	m.timer.Stop()
}

func (m *Machine) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}
