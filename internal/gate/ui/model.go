// Package ui renders the PIN keypad as a terminal program. All gate
// decisions live in the state machine; this layer only translates keys into
// events and snapshots into frames.
package ui

import (
	"context"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldserve/pingate/internal/gate"
)

// successGrace keeps the confirmation frame on screen briefly before the
// program exits.
const successGrace = 1500 * time.Millisecond

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	frameStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 3)
	dotFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	dotEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	lockStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

type refreshMsg struct{}

type bootstrapDoneMsg struct{}

type submitDoneMsg struct{}

type redirectMsg struct{ sessionID string }

type graceElapsedMsg struct{}

type model struct {
	ctx       context.Context
	machine   *gate.Machine
	sessionID string
	leaving   bool
	quitting  bool
}

func newModel(ctx context.Context, machine *gate.Machine) model {
	return model{ctx: ctx, machine: machine}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		m.machine.Bootstrap(m.ctx)
		return bootstrapDoneMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		}
		ev, ok := gate.EventForKey(msg.String())
		if !ok || !m.machine.AcceptingInput() {
			return m, nil
		}
		if _, isSubmit := ev.(gate.SubmitEvent); isSubmit {
			// validation blocks on the network, keep it off the update loop
			return m, func() tea.Msg {
				m.machine.Handle(m.ctx, ev)
				return submitDoneMsg{}
			}
		}
		m.machine.Handle(m.ctx, ev)
		return m, nil
	case redirectMsg:
		m.sessionID = msg.sessionID
		return m.maybeLeave()
	case refreshMsg, bootstrapDoneMsg, submitDoneMsg:
		return m.maybeLeave()
	case graceElapsedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// maybeLeave schedules the exit once the gate reports success, after the
// grace delay so the operator sees the confirmation.
func (m model) maybeLeave() (tea.Model, tea.Cmd) {
	if m.leaving || m.machine.Snapshot().State != gate.StateSuccess {
		return m, nil
	}
	m.leaving = true
	return m, tea.Tick(successGrace, func(time.Time) tea.Msg {
		return graceElapsedMsg{}
	})
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.machine.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("PIN Access"))
	b.WriteString("\n\n")

	switch snap.State {
	case gate.StateInitializing:
		b.WriteString("Checking access status...")
	case gate.StateLocked:
		b.WriteString(lockStyle.Render("Too many failed attempts"))
		b.WriteString("\n\n")
		b.WriteString("Try again in " + lockStyle.Render(snap.Countdown))
	case gate.StateSuccess:
		b.WriteString(successStyle.Render("Access granted"))
		if m.sessionID != "" {
			b.WriteString("\n\n" + hintStyle.Render("session "+m.sessionID))
		}
	case gate.StateSubmitting:
		b.WriteString(renderDots(snap.Entered))
		b.WriteString("\n\n")
		b.WriteString("Validating...")
	default:
		b.WriteString(renderDots(snap.Entered))
		b.WriteString("\n\n")
		if snap.Message != "" {
			b.WriteString(errorStyle.Render(snap.Message))
		} else {
			b.WriteString(hintStyle.Render(attemptsLine(snap.AttemptsLeft)))
		}
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("0-9 enter digits · backspace delete · enter submit · q quit"))
	}

	return frameStyle.Render(b.String()) + "\n"
}

func renderDots(entered int) string {
	parts := make([]string, 0, gate.PinLength)
	for i := 0; i < gate.PinLength; i++ {
		if i < entered {
			parts = append(parts, dotFilledStyle.Render("●"))
		} else {
			parts = append(parts, dotEmptyStyle.Render("○"))
		}
	}
	return strings.Join(parts, " ")
}

func attemptsLine(attempts int) string {
	if attempts < 0 {
		attempts = 0
	}
	if attempts == 1 {
		return "1 attempt remaining"
	}
	return strconv.Itoa(attempts) + " attempts remaining"
}
