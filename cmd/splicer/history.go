package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/maauso/appreciation-reel/internal/report"
)

var (
	// errNoHistory is returned when the history command runs without HISTORY_DB.
	errNoHistory = errors.New("run history is disabled; set HISTORY_DB or history_db")
	// errDeleteWithRunID is returned when --delete is combined with a run ID argument.
	errDeleteWithRunID = errors.New("--delete takes the run ID; do not pass it as an argument too")
)

func newHistoryCommand(flags *flagValues) *cobra.Command {
	var (
		limit    int
		deleteID string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs, show one run's report, or delete a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return errNoHistory
			}

			repo, err := report.OpenSQLite(cmd.Context(), cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer func() { _ = repo.Close() }()

			out := cmd.OutOrStdout()
			if deleteID != "" {
				if len(args) > 0 {
					return errDeleteWithRunID
				}
				if err := repo.Delete(cmd.Context(), deleteID); err != nil {
					return fmt.Errorf("delete run %s: %w", deleteID, err)
				}
				_, _ = fmt.Fprintf(out, "Deleted %s\n", deleteID)
				return nil
			}
			if len(args) == 1 {
				run, err := repo.FindByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, _ = io.WriteString(out, report.Summary(run))
				return nil
			}

			runs, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			_, _ = fmt.Fprintln(out, report.RenderRuns(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&deleteID, "delete", "", "Delete the run with this ID from the history")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}
