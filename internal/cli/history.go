package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/wire"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Review committed sessions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List committed sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		summaries, err := wire.HistoryService().ListCommitted(cmd.Context(), currentOwner(), primary.Page{Limit: limit, Offset: offset})
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Println("No committed sessions")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tTYPE\tSTATUS\tCOMMITTED\tCOMPLETED\tCHANGED\tFAILED\tPROGRESS")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d%%\n",
				s.SessionID, s.RecordType, colorizeStatus(s.Status), formatTime(s.CommittedAt), formatTime(s.CompletedAt),
				s.NumChangedRecords, s.FailureCount, s.PercentComplete)
		}
		return w.Flush()
	},
}

var historyDownloadCmd = &cobra.Command{
	Use:   "download [session-id]",
	Short: "Write the side-effect ids of a commit, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		n, err := wire.HistoryService().DownloadSideEffects(cmd.Context(), currentOwner(), args[0], w)
		if err != nil {
			return fmt.Errorf("failed to download side effects: %w", err)
		}
		if out != "" {
			fmt.Printf("✓ Wrote %d id(s) to %s\n", n, out)
		}
		return nil
	},
}

var historyEventsCmd = &cobra.Command{
	Use:   "events [session-id]",
	Short: "Show the audit trail of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := wire.HistoryService().Events(cmd.Context(), currentOwner(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTOR\tACTION\tFIELD\tFROM\tTO")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				formatTime(&e.CreatedAt), e.ActorID, e.Action, e.FieldName, e.OldValue, e.NewValue)
		}
		return w.Flush()
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "Maximum number of sessions")
	historyListCmd.Flags().Int("offset", 0, "Number of sessions to skip")
	historyDownloadCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDownloadCmd)
	historyCmd.AddCommand(historyEventsCmd)
}

// HistoryCmd returns the history command
func HistoryCmd() *cobra.Command {
	return historyCmd
}
