package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/exposcan/internal/config"
	"github.com/nao1215/exposcan/internal/database"
	"github.com/nao1215/exposcan/internal/model"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past scan runs",
		Long: `History lists scan runs stored in the history database, newest first.

With --run it prints the findings of one run. Adding --new keeps only the
findings whose URL was not reported by any earlier run.

Examples:
  # List the 20 most recent runs
  exposcan history

  # List every run
  exposcan history --limit 0

  # Show the findings of a run
  exposcan history --run 7c9e6679-7425-40de-944b-e07fc1f90ae7

  # Show only what is new in that run
  exposcan history --run 7c9e6679-7425-40de-944b-e07fc1f90ae7 --new`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Number of runs to list (0 = all)")
	cmd.Flags().StringP("run", "r", "",
		"Show the findings of the run with this ID")
	cmd.Flags().Bool("new", false,
		"With --run, show only findings not reported by earlier runs")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	onlyNew, err := cmd.Flags().GetBool("new")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	if onlyNew && runID == "" {
		return errors.New("--new requires --run")
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID != "" {
		return showRun(ctx, cmd.OutOrStdout(), db, runID, onlyNew)
	}
	return listRuns(ctx, cmd.OutOrStdout(), db, limit)
}

func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No scan history found.")
		fmt.Fprintln(out, "\nUse 'exposcan scan <targets-file>' to run a scan.")
		return nil
	}

	fmt.Fprintf(out, "Scan history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %8s  %8s  %8s  %s\n", "ID", "Started", "Requests", "Failed", "Findings", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 98))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %8d  %8d  %8d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Stats.Requests(),
			run.Stats.Failed,
			run.Stats.Findings,
			runStatus(run.Interrupted),
		)
	}

	fmt.Fprintln(out, "\nUse 'exposcan history --run <id>' to show the findings of a run.")
	return nil
}

func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, runID string, onlyNew bool) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}

	var list []model.Finding
	if onlyNew {
		list, err = db.NewFindings(ctx, runID)
	} else {
		list, err = db.GetRunFindings(ctx, runID)
	}
	if err != nil {
		return fmt.Errorf("failed to get findings: %w", err)
	}

	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Duration: %s\n", run.Duration().Round(100 * time.Millisecond))
	fmt.Fprintf(out, "  Status:   %s\n", runStatus(run.Interrupted))
	fmt.Fprintf(out, "  Seeds:    %d\n", run.Seeds)
	fmt.Fprintf(out, "  Requests: %d (%d ok, %d failed)\n\n",
		run.Stats.Requests(), run.Stats.Succeeded, run.Stats.Failed)

	if len(list) == 0 {
		if onlyNew {
			fmt.Fprintln(out, "No new findings.")
		} else {
			fmt.Fprintln(out, "No findings.")
		}
		return nil
	}

	heading := "Findings"
	if onlyNew {
		heading = "New findings"
	}
	fmt.Fprintf(out, "%s (%d):\n", heading, len(list))
	for _, f := range list {
		fmt.Fprintf(out, "  [%s] %s\n", strings.ToUpper(f.Severity.Label()), f.URL)
		fmt.Fprintf(out, "         %s\n", f.Reason)
	}

	return nil
}

func runStatus(interrupted bool) string {
	if interrupted {
		return "interrupted"
	}
	return "complete"
}
