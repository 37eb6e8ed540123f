package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/bulkedit/internal/wire"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage bulk-edit sessions",
	Long:  "Start, resume, restart and inspect the bulk-edit session of a record type",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session for --type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := wire.SessionService().Start(cmd.Context(), currentScope())
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		fmt.Printf("✓ Started session %s for %s\n", session.ID, session.RecordType)
		return nil
	},
}

var sessionResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the open session for --type, starting one if none exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, resumed, err := wire.SessionService().StartOrResume(cmd.Context(), currentScope())
		if err != nil {
			return fmt.Errorf("failed to resume session: %w", err)
		}
		if resumed {
			fmt.Printf("✓ Resumed session %s (%d staged change(s))\n", session.ID, len(session.Changes))
		} else {
			fmt.Printf("✓ Started session %s for %s\n", session.ID, session.RecordType)
		}
		return nil
	},
}

var sessionRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Archive the open session for --type and start over",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := wire.SessionService().Restart(cmd.Context(), currentScope())
		if err != nil {
			return fmt.Errorf("failed to restart session: %w", err)
		}
		fmt.Printf("✓ Started session %s for %s\n", session.ID, session.RecordType)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a session's filters, columns, changes and progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		session, err := wire.SessionService().GetSession(ctx, currentOwner(), id)
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		printSession(os.Stdout, session)
		return nil
	},
}

var sessionExprCmd = &cobra.Command{
	Use:   "expr",
	Short: "Print the search expression of the session's filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		expr, err := wire.SessionService().Expression(ctx, currentOwner(), id)
		if err != nil {
			return fmt.Errorf("failed to render expression: %w", err)
		}
		fmt.Println(expr)
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionResumeCmd)
	sessionCmd.AddCommand(sessionRestartCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionExprCmd)
}

// SessionCmd returns the session command
func SessionCmd() *cobra.Command {
	return sessionCmd
}
