package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/wire"
)

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Stage, undo and preview edits",
	Long: `Stage edits in a session's change log. Nothing is written to records
until the session is committed.

Operations: SET, CLEAR, FIND_REPLACE, COPY_FROM_COLUMN, MAKE_NULL, STRIP,
TITLE_CASE, UPPER_CASE, LOWER_CASE, RESET`,
}

var changeApplyCmd = &cobra.Command{
	Use:   "apply [operation] [field]",
	Short: "Stage an edit of one field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		value, _ := cmd.Flags().GetString("value")
		find, _ := cmd.Flags().GetString("find")
		replace, _ := cmd.Flags().GetString("replace")
		regex, _ := cmd.Flags().GetBool("regex")
		source, _ := cmd.Flags().GetString("from")
		ids, _ := cmd.Flags().GetStringSlice("ids")

		preview, err := wire.ChangeLogService().ApplyChange(ctx, currentOwner(), id, primary.ApplyChangeRequest{
			Operation:   args[0],
			TargetField: args[1],
			Payload: change.Payload{
				Value:       value,
				Find:        find,
				Replace:     replace,
				UseRegex:    regex,
				SourceField: source,
			},
			ExplicitIDs: ids,
		})
		if err != nil {
			return fmt.Errorf("failed to apply change: %w", err)
		}
		c := preview.Change
		fmt.Printf("✓ Staged change #%d: %s %s %s\n", c.Sequence, c.Action, c.TargetField, describePayload(c.Payload))
		fmt.Printf("  Affects about %d record(s)\n", preview.EstimatedRecords)
		return nil
	},
}

var changeUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Remove the most recent change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		c, err := wire.ChangeLogService().UndoLast(ctx, currentOwner(), id)
		if err != nil {
			return fmt.Errorf("failed to undo: %w", err)
		}
		fmt.Printf("✓ Undid change #%d: %s %s\n", c.Sequence, c.Action, c.TargetField)
		return nil
	},
}

var changeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every staged change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.ChangeLogService().Clear(ctx, currentOwner(), id); err != nil {
			return fmt.Errorf("failed to clear changes: %w", err)
		}
		fmt.Println("✓ Change log cleared")
		return nil
	},
}

var changeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staged changes in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		changes, err := wire.ChangeLogService().List(ctx, currentOwner(), id)
		if err != nil {
			return fmt.Errorf("failed to list changes: %w", err)
		}
		if len(changes) == 0 {
			fmt.Println("No staged changes")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tOPERATION\tFIELD\tARGUMENTS\tRECORDS")
		for _, c := range changes {
			scope := "all selected"
			if c.Scope == change.ScopeExplicitIDs {
				scope = strings.Join(c.ExplicitIDs, ",")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.Sequence, c.Action, c.TargetField, describePayload(c.Payload), scope)
		}
		return w.Flush()
	},
}

var changePreviewCmd = &cobra.Command{
	Use:   "preview [record-id]",
	Short: "Show what committing would write to one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		preview, err := wire.ChangeLogService().PreviewRecord(ctx, currentOwner(), id, args[0])
		if err != nil {
			return fmt.Errorf("failed to preview record: %w", err)
		}

		fmt.Printf("Record %s\n\nCurrent:\n", preview.RecordID)
		printProperties(os.Stdout, preview.Current)
		if len(preview.Updates) == 0 {
			fmt.Println("\nNo changes would be written")
			return nil
		}
		fmt.Println("\nUpdates:")
		printProperties(os.Stdout, preview.Updates)
		return nil
	},
}

func init() {
	changeApplyCmd.Flags().String("value", "", "Value for SET")
	changeApplyCmd.Flags().String("find", "", "Text or pattern to find for FIND_REPLACE")
	changeApplyCmd.Flags().String("replace", "", "Replacement for FIND_REPLACE ($1 expands regex groups)")
	changeApplyCmd.Flags().Bool("regex", false, "Treat --find as a regular expression")
	changeApplyCmd.Flags().String("from", "", "Source field for COPY_FROM_COLUMN")
	changeApplyCmd.Flags().StringSlice("ids", nil, "Apply only to these record ids")

	changeCmd.AddCommand(changeApplyCmd)
	changeCmd.AddCommand(changeUndoCmd)
	changeCmd.AddCommand(changeClearCmd)
	changeCmd.AddCommand(changeListCmd)
	changeCmd.AddCommand(changePreviewCmd)
}

// ChangeCmd returns the change command
func ChangeCmd() *cobra.Command {
	return changeCmd
}
