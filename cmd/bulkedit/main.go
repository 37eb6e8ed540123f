package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/bulkedit/internal/cli"
	"github.com/example/bulkedit/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Deferred so connections close even when a command fails.
	defer cli.Teardown()

	rootCmd := &cobra.Command{
		Use:     "bulkedit",
		Short:   "Stage and commit bulk edits to records",
		Version: version.String(),
		Long: `bulkedit selects records with filters, stages edits in a session's
change log, previews them, and commits them in resumable batches.`,
		PersistentPreRunE: cli.Setup,
		SilenceUsage:      true,
	}
	cli.AddPersistentFlags(rootCmd)

	// Session workflow
	rootCmd.AddCommand(cli.SessionCmd())
	rootCmd.AddCommand(cli.FilterCmd())
	rootCmd.AddCommand(cli.ColumnCmd())
	rootCmd.AddCommand(cli.ChangeCmd())
	rootCmd.AddCommand(cli.CommitCmd())

	// Review and data
	rootCmd.AddCommand(cli.HistoryCmd())
	rootCmd.AddCommand(cli.RecordsCmd())

	// Background processing
	rootCmd.AddCommand(cli.WorkerCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
