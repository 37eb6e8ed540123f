package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/wire"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Resume interrupted commits and process queued commit runs",
	Long: `Worker resubmits every session left committing by a stopped process,
then processes commit runs until interrupted. With the local executor it
exits once the resubmitted runs finish.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		n, err := wire.CommitService().RecoverPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to recover pending commits: %w", err)
		}
		if n > 0 {
			fmt.Printf("✓ Resubmitted %d interrupted commit(s)\n", n)
		}

		if err := wire.Serve(ctx); err != nil {
			return fmt.Errorf("worker stopped: %w", err)
		}
		log.Info(ctx, log.KV{K: "msg", V: "worker stopped"})
		return nil
	},
}

// WorkerCmd returns the worker command
func WorkerCmd() *cobra.Command {
	return workerCmd
}
