// Package gatecli is the operator-facing command for the PIN access gate. It
// wraps the gate state machine in a terminal keypad and adds status and
// reset plumbing for scripts.
package gatecli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldserve/pingate/internal/gate/store"
	"github.com/fieldserve/pingate/internal/gate/ui"
	"github.com/fieldserve/pingate/internal/observability"
	"github.com/fieldserve/pingate/internal/pinclient"
	"github.com/fieldserve/pingate/internal/tools/common"
)

type options struct {
	serverURL string
	clientKey string
	stateDir  string
	envFile   string
	ci        bool
	timeout   time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "gate",
		Short:         "PIN access gate for field service terminals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(opts.envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			if opts.serverURL == "" {
				opts.serverURL = os.Getenv("PINGATE_SERVER_URL")
			}
			if opts.serverURL == "" {
				return fmt.Errorf("server URL required (--server or PINGATE_SERVER_URL)")
			}
			if opts.clientKey == "" {
				opts.clientKey = os.Getenv("PINGATE_CLIENT_KEY")
			}
			if opts.clientKey == "" {
				host, err := os.Hostname()
				if err != nil {
					return fmt.Errorf("derive client key: %w", err)
				}
				opts.clientKey = host
			}
			if opts.stateDir == "" {
				opts.stateDir = defaultStateDir()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "gate server base URL")
	root.PersistentFlags().StringVar(&opts.clientKey, "client-key", "", "stable client identity for attempt budgeting")
	root.PersistentFlags().StringVar(&opts.stateDir, "state-dir", "", "directory for persisted gate state")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load")
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "machine-readable JSON output")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "remote call timeout")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newStatusCommand(opts))
	root.AddCommand(newResetCommand(opts))
	return root
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the keypad and unlock access",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ci {
				return fmt.Errorf("run is interactive, use status in CI")
			}
			client, err := pinclient.New(opts.serverURL, opts.clientKey)
			if err != nil {
				return err
			}
			logger := observability.NewLogger("development", "warn")
			st := store.NewFileStore(opts.stateDir, logger)

			sessionID, err := ui.Run(cmd.Context(), st, client, logger)
			if err != nil {
				return err
			}
			if sessionID == "" {
				return fmt.Errorf("access not granted")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "access granted, session "+sessionID)
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the remote attempt budget and local gate state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "gate status", func(ctx context.Context) ([]string, error) {
				client, err := pinclient.New(opts.serverURL, opts.clientKey)
				if err != nil {
					return nil, err
				}
				status, err := client.GetStatus(ctx)
				if err != nil {
					return nil, err
				}

				details := []string{
					fmt.Sprintf("client key: %s", opts.clientKey),
					fmt.Sprintf("attempts left: %d", status.AttemptsLeft),
				}
				if status.LockedUntil != nil {
					details = append(details, fmt.Sprintf("locked until: %s", status.LockedUntil.Format(time.RFC3339)))
				}

				st := store.NewFileStore(opts.stateDir, nil)
				if sess := st.ReadSession(); sess != nil {
					details = append(details, fmt.Sprintf("local session: %s (expires %s)", sess.SessionID, sess.ExpiresAt.Format(time.RFC3339)))
				} else {
					details = append(details, "local session: none")
				}
				if lock := st.ReadLockout(); lock != nil {
					details = append(details, fmt.Sprintf("local lockout until: %s", lock.LockedUntil.Format(time.RFC3339)))
				}
				return details, nil
			})
		},
	}
}

func newResetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the locally persisted session and lockout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, "gate reset", func(ctx context.Context) ([]string, error) {
				st := store.NewFileStore(opts.stateDir, nil)
				st.ClearSession()
				st.ClearLockout()
				details := []string{"cleared " + opts.stateDir}

				// Best effort. The local files are gone either way. A fresh
				// client has no session cookie to present, so the server may
				// have nothing to revoke.
				if client, err := pinclient.New(opts.serverURL, opts.clientKey); err == nil {
					if err := client.Logout(ctx); err != nil {
						details = append(details, "server logout failed: "+err.Error())
					} else {
						details = append(details, "server logout requested")
					}
				}
				return details, nil
			})
		},
	}
}

// run executes an action with the configured timeout and prints either plain
// lines or a CI JSON summary.
func run(opts *options, title string, action func(ctx context.Context) ([]string, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	details, err := action(ctx)
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
		return err
	}
	if err != nil {
		return err
	}
	for _, line := range details {
		fmt.Println(line)
	}
	return nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pingate")
	}
	return ".pingate"
}
