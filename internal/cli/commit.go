package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/bulkedit/internal/wire"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the session: write the staged changes to every selected record",
	Long: `Commit closes the session and hands the write-out to the task executor.

With the local executor the command waits for the run to finish. With the
redis executor the run is queued for ` + "`bulkedit worker`" + `.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}

		resp, err := wire.CommitService().Commit(ctx, currentOwner(), id)
		if err != nil {
			return fmt.Errorf("failed to commit session: %w", err)
		}
		fmt.Printf("✓ Session %s committed (task %s)\n", resp.SessionID, resp.TaskID)

		if !wire.RunsLocally() {
			fmt.Println("  Queued; run `bulkedit worker` to process it")
			return nil
		}

		wire.WaitTasks()
		session, err := wire.SessionService().GetSession(ctx, currentOwner(), resp.SessionID)
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		fmt.Printf("  %s: %d%%, %d record(s) changed, %d failed\n",
			colorizeStatus(session.Status), session.PercentComplete, session.NumChangedRecords, len(session.Failures))
		for _, f := range session.Failures {
			fmt.Printf("  %s %s: %s\n", color.RedString("✗"), f.RecordID, f.Error)
		}
		if session.ErrorDetail != "" {
			return fmt.Errorf("commit run failed: %s", session.ErrorDetail)
		}
		return nil
	},
}

// CommitCmd returns the commit command
func CommitCmd() *cobra.Command {
	return commitCmd
}
