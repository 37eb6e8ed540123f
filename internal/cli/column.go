package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/wire"
)

var columnCmd = &cobra.Command{
	Use:   "column",
	Short: "Manage the columns shown for a session's records",
}

var columnAddCmd = &cobra.Command{
	Use:   "add [field]",
	Short: "Add a column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		label, _ := cmd.Flags().GetString("label")
		dataType, _ := cmd.Flags().GetString("data-type")

		c, err := wire.SessionService().AddColumn(ctx, currentOwner(), id, primary.AddColumnRequest{
			Field:    args[0],
			Label:    label,
			DataType: dataType,
		})
		if err != nil {
			return fmt.Errorf("failed to add column: %w", err)
		}
		fmt.Printf("✓ Added column %s: %s (%s)\n", c.ID, c.Label, c.DataType)
		return nil
	},
}

var columnRemoveCmd = &cobra.Command{
	Use:   "remove [field-or-id]",
	Short: "Remove a column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.SessionService().RemoveColumn(ctx, currentOwner(), id, args[0]); err != nil {
			return fmt.Errorf("failed to remove column: %w", err)
		}
		fmt.Printf("✓ Removed column %s\n", args[0])
		return nil
	},
}

var columnReorderCmd = &cobra.Command{
	Use:   "reorder [id...]",
	Short: "Reorder the columns; every column id must be listed once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.SessionService().ReorderColumns(ctx, currentOwner(), id, args); err != nil {
			return fmt.Errorf("failed to reorder columns: %w", err)
		}
		fmt.Println("✓ Columns reordered")
		return nil
	},
}

func init() {
	columnAddCmd.Flags().String("label", "", "Column label (defaults to the field name)")
	columnAddCmd.Flags().String("data-type", "", "Data type of the field (defaults to text)")

	columnCmd.AddCommand(columnAddCmd)
	columnCmd.AddCommand(columnRemoveCmd)
	columnCmd.AddCommand(columnReorderCmd)
}

// ColumnCmd returns the column command
func ColumnCmd() *cobra.Command {
	return columnCmd
}
