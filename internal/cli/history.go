package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rocketship-ai/uiprobe/internal/history"
	"github.com/rocketship-ai/uiprobe/internal/report"
)

// NewHistoryCmd creates the history command group.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
		Long: `Inspect runs saved with "uiprobe run --record".

Examples:
  uiprobe history list
  uiprobe history list --scenario dashboard-admin --limit 5
  uiprobe history show <run-id>
  uiprobe history diff <run-id> <run-id>`,
	}
	cmd.PersistentFlags().String("history-db", "", "History database path (default: .uiprobe/history.db)")

	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryDiffCmd())
	return cmd
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	path, _ := cmd.Flags().GetString("history-db")
	return history.Open(cmd.Context(), path)
}

func newHistoryListCmd() *cobra.Command {
	var (
		scenario string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.List(cmd.Context(), scenario, limit)
			if err != nil {
				return err
			}
			Logger.Debug("listed runs", "count", len(runs), "scenario", scenario)
			return displayRunsTable(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "", "Filter by scenario name")
	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "Maximum number of runs to display")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the summary of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rep, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report.WriteSummary(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}

func newHistoryDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <run-id> <run-id>",
		Short: "Compare the outcomes of two recorded runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			a, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			b, err := store.Get(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			diff, err := report.Diff(a, b)
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No differences in outcomes.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

func displayRunsTable(out io.Writer, runs []history.Summary) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "RUN ID\tSTATUS\tSCENARIO\tCHECKS\tDURATION\tSTARTED\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "------\t------\t--------\t------\t--------\t-------\n"); err != nil {
		return err
	}

	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			shortID(run.ID),
			statusLabel(run),
			truncate(run.Scenario, 30),
			run.Passed,
			run.Passed+run.Failed,
			formatDuration(run.FinishedAt.Sub(run.StartedAt)),
			formatTime(run.StartedAt),
		); err != nil {
			return err
		}
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func statusLabel(run history.Summary) string {
	switch {
	case run.Aborted:
		return "⚠ ABORTED"
	case run.Success:
		return "✓ PASSED"
	default:
		return "✗ FAILED"
	}
}

func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case ms <= 0:
		return "N/A"
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	default:
		return fmt.Sprintf("%dm%ds", ms/60000, (ms%60000)/1000)
	}
}

func formatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}
