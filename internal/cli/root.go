package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chitieu/internal/backend"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// Opener returns a wired backend. It is called once per command run.
type Opener func(ctx context.Context) (*backend.Result, error)

type app struct {
	open    Opener
	backend *backend.Result
}

// NewRootCommand builds the chitieuctl command tree on top of open.
func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "chitieuctl",
		Short:         "Manage the expense ledger from the command line",
		Long:          `chitieuctl operates directly on the configured backend: list month sessions, import statements, review the import history, export backups, lock months or events and ask for a spending commentary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			a.backend = res
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.AddCommand(
		a.sessionsCmd(),
		a.importCmd(),
		a.importsCmd(),
		a.exportCmd(),
		a.lockCmd(),
		a.analyzeCmd(),
	)
	return root
}

func (a *app) close() error {
	if a.backend == nil || a.backend.Cleanup == nil {
		return nil
	}
	err := a.backend.Cleanup()
	a.backend = nil
	return err
}

// target resolves a month argument or the --event flag. "current" names
// the month of today.
func (a *app) target(cmd *cobra.Command, args []string) (ledger.Target, error) {
	event, _ := cmd.Flags().GetString("event")
	switch {
	case event != "" && len(args) > 0:
		return ledger.Target{}, fmt.Errorf("give either a month or --event, not both")
	case event != "":
		return ledger.Group(event), nil
	case len(args) == 0:
		return ledger.Target{}, fmt.Errorf("a month (YYYY-MM) or --event is required")
	}
	month := strings.TrimSpace(args[0])
	if month == "current" {
		month = a.backend.Store.CurrentMonth()
	}
	if !core.ValidMonthKey(month) {
		return ledger.Target{}, fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	return ledger.Personal(month), nil
}
