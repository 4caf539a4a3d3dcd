package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fieldserve/pingate/internal/domain"
	"github.com/fieldserve/pingate/internal/gate"
	"github.com/fieldserve/pingate/internal/pinclient"
)

type memStore struct {
	session *domain.StoredSession
	lockout *domain.LockoutInfo
}

func (s *memStore) ReadSession() *domain.StoredSession {
	if s.session == nil || !s.session.Valid(time.Now()) {
		return nil
	}
	return s.session
}
func (s *memStore) WriteSession(session domain.StoredSession) bool {
	s.session = &session
	return true
}
func (s *memStore) ReadLockout() *domain.LockoutInfo {
	if s.lockout == nil || !s.lockout.Active(time.Now()) {
		return nil
	}
	return s.lockout
}
func (s *memStore) WriteLockout(info domain.LockoutInfo) { s.lockout = &info }
func (s *memStore) ClearLockout()                        { s.lockout = nil }

type fixedValidator struct {
	status pinclient.Status
	result pinclient.Result
}

func (v *fixedValidator) GetStatus(context.Context) (pinclient.Status, error) {
	return v.status, nil
}
func (v *fixedValidator) Validate(context.Context, string) (pinclient.Result, error) {
	return v.result, nil
}
func (v *fixedValidator) HasSessionCookie() bool { return false }

func newTestModel(t *testing.T, v gate.Validator) (model, *gate.Machine) {
	t.Helper()
	machine := gate.NewMachine(&memStore{}, v)
	t.Cleanup(machine.Close)
	return newModel(context.Background(), machine), machine
}

func TestViewShowsKeypadAfterBootstrap(t *testing.T) {
	m, machine := newTestModel(t, &fixedValidator{status: pinclient.Status{AttemptsLeft: 3}})
	machine.Bootstrap(context.Background())

	view := m.View()
	if !strings.Contains(view, "PIN Access") {
		t.Fatalf("missing title: %q", view)
	}
	if !strings.Contains(view, "3 attempts remaining") {
		t.Fatalf("missing attempts line: %q", view)
	}
}

func TestViewShowsLockCountdown(t *testing.T) {
	until := time.Now().Add(5 * time.Minute)
	m, machine := newTestModel(t, &fixedValidator{
		status: pinclient.Status{AttemptsLeft: 0, LockedUntil: &until},
	})
	machine.Bootstrap(context.Background())

	view := m.View()
	if !strings.Contains(view, "Too many failed attempts") {
		t.Fatalf("missing lock banner: %q", view)
	}
	if !strings.Contains(view, "Try again in") {
		t.Fatalf("missing countdown line: %q", view)
	}
}

func TestDigitsFillDots(t *testing.T) {
	m, machine := newTestModel(t, &fixedValidator{status: pinclient.Status{AttemptsLeft: 3}})
	machine.Bootstrap(context.Background())

	for _, r := range "12" {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(model)
	}

	if got := machine.Snapshot().Entered; got != 2 {
		t.Fatalf("entered = %d, want 2", got)
	}
	if view := m.View(); !strings.Contains(view, "●") || !strings.Contains(view, "○") {
		t.Fatalf("expected mixed dots: %q", view)
	}
}

func TestSuccessSchedulesGraceExit(t *testing.T) {
	m, machine := newTestModel(t, &fixedValidator{
		status: pinclient.Status{AttemptsLeft: 3},
		result: pinclient.Result{
			Outcome:   pinclient.OutcomeGranted,
			SessionID: "sess-1",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	})
	machine.Bootstrap(context.Background())
	for _, r := range "123456" {
		machine.Handle(context.Background(), gate.DigitEvent{Digit: byte(r)})
	}
	machine.Handle(context.Background(), gate.SubmitEvent{})

	updated, cmd := m.Update(submitDoneMsg{})
	m = updated.(model)
	if cmd == nil {
		t.Fatal("expected grace tick command after success")
	}
	if view := m.View(); !strings.Contains(view, "Access granted") {
		t.Fatalf("missing success banner: %q", view)
	}

	updated, cmd = m.Update(graceElapsedMsg{})
	m = updated.(model)
	if cmd == nil {
		t.Fatal("expected quit command after grace delay")
	}
	if view := m.View(); view != "" {
		t.Fatalf("expected blank final frame, got %q", view)
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t, &fixedValidator{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !updated.(model).quitting {
		t.Fatal("expected quitting flag")
	}
}
