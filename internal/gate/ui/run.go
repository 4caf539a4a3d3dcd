package ui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fieldserve/pingate/internal/gate"
	"github.com/fieldserve/pingate/internal/gate/store"
)

// Run owns the machine for the lifetime of the terminal program so countdown
// ticks and redirects can be forwarded into the update loop. It returns the
// granted session id, empty when the operator quit without a grant.
func Run(ctx context.Context, st store.Store, validator gate.Validator, logger *slog.Logger) (string, error) {
	var send func(tea.Msg)
	forward := func(msg tea.Msg) {
		if send != nil {
			send(msg)
		}
	}

	var granted string
	machine := gate.NewMachine(st, validator,
		gate.WithLogger(logger),
		gate.WithOnChange(func() { forward(refreshMsg{}) }),
		gate.WithOnRedirect(func(sessionID string) {
			granted = sessionID
			forward(redirectMsg{sessionID: sessionID})
		}),
	)
	defer machine.Close()

	p := tea.NewProgram(newModel(ctx, machine), tea.WithAltScreen(), tea.WithContext(ctx))
	send = func(msg tea.Msg) { go p.Send(msg) }

	if _, err := p.Run(); err != nil {
		return "", err
	}
	if machine.Snapshot().State != gate.StateSuccess {
		return "", nil
	}
	return granted, nil
}
