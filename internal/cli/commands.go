package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

const analyzeTimeout = 30 * time.Second

func (a *app) sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List month sessions with their totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.backend.Store
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tCOUNT\tTOTAL\tLOCKED")
			for _, key := range store.SessionKeys() {
				sess, _ := store.Session(key)
				locked := ""
				if sess.Locked() {
					locked = "yes"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", key, len(sess.Expenses), sess.Total(), locked)
			}
			return w.Flush()
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON or CSV file",
		Long: `Import a backup or a list of expenses. Lists go to the month of each
record unless --event names a group event. Backups replace the months they
contain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, _ := cmd.Flags().GetString("event")
			t := ledger.Personal("")
			if event != "" {
				t = ledger.Group(event)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			res, err := a.backend.Importer.ImportFile(cmd.Context(), filepath.Base(args[0]), f, t)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Imported == 0 {
				fmt.Fprintln(out, "No usable records found.")
				return nil
			}
			fmt.Fprintf(out, "Imported %d records (%d rejected, %d skipped in locked targets).\n",
				res.Imported, res.Rejected, res.Skipped)
			if res.LatestMonth != "" {
				fmt.Fprintf(out, "Latest month: %s\n", res.LatestMonth)
			}
			return nil
		},
	}
	cmd.Flags().String("event", "", "Import into this group event")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup of all sessions or of one group event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			month, _ := cmd.Flags().GetString("month")
			event, _ := cmd.Flags().GetString("event")
			dir, _ := cmd.Flags().GetString("dir")

			var (
				exp ledger.Export
				err error
			)
			if event != "" {
				exp, err = a.backend.Store.ExportGroupEvent(event)
			} else {
				exp, err = a.backend.Store.ExportSessions(month)
			}
			if err != nil {
				return err
			}

			if dir == "-" {
				_, err = cmd.OutOrStdout().Write(append(exp.Data, '\n'))
				return err
			}
			path := filepath.Join(dir, exp.FileName)
			if err := os.WriteFile(path, exp.Data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("month", "", "Month named in the file name (default: current month)")
	cmd.Flags().String("event", "", "Export this group event instead of the sessions")
	cmd.Flags().String("dir", ".", `Output directory, or "-" for stdout`)
	return cmd
}

func (a *app) lockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock [MONTH]",
		Short: "Toggle the lock of a month or a group event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			locked, err := a.backend.Store.ToggleLock(cmd.Context(), t)
			if err != nil {
				return err
			}
			state := "unlocked"
			if locked {
				state = "locked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", t, state)
			return nil
		},
	}
	cmd.Flags().String("event", "", "Group event id")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [MONTH]",
		Short: "Ask for a short commentary on a month or a group event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.target(cmd, args)
			if err != nil {
				return err
			}
			expenses, err := a.backend.Store.Expenses(t)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
			defer cancel()
			pending := a.backend.Analysis.Start(ctx, expenses, core.SumAmounts(expenses))
			fmt.Fprintf(cmd.ErrOrStderr(), "Analyzing %d expenses of %s...\n", len(expenses), t)
			select {
			case res := <-pending:
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", res.Mood, res.Message)
				return nil
			case <-ctx.Done():
				return fmt.Errorf("analyze %s: %w", t, ctx.Err())
			}
		},
	}
	cmd.Flags().String("event", "", "Group event id")
	return cmd
}

func (a *app) importsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "Show the most recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			runs, err := a.backend.Repository.RecentImports(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No imports yet.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tSOURCE\tKIND\tIMPORTED\tSKIPPED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
					run.CreatedAt.In(a.backend.Store.Location()).Format("2006-01-02 15:04"),
					run.Source, run.Kind, run.Imported, run.Skipped)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 10, "Number of imports to show")
	return cmd
}
