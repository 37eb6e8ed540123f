package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/wire"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Manage the filters narrowing a session's records",
}

var filterAddCmd = &cobra.Command{
	Use:   "add [field] [operator] [value]",
	Short: "Add a filter (operators: exact, is_not, starts, contains, lt, gte, is_any, ...)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		dataType, _ := cmd.Flags().GetString("data-type")
		req := primary.AddFilterRequest{Field: args[0], Operator: args[1], DataType: dataType}
		if len(args) == 3 {
			req.Value = args[2]
		}

		f, err := wire.SessionService().AddFilter(ctx, currentOwner(), id, req)
		if err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
		fmt.Printf("✓ Added filter %s: %s %s %q\n", f.ID, f.Field, f.Match, f.Value)
		return nil
	},
}

var filterRemoveCmd = &cobra.Command{
	Use:   "remove [field-or-id]",
	Short: "Remove a filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.SessionService().RemoveFilter(ctx, currentOwner(), id, args[0]); err != nil {
			return fmt.Errorf("failed to remove filter: %w", err)
		}
		fmt.Printf("✓ Removed filter %s\n", args[0])
		return nil
	},
}

var filterReorderCmd = &cobra.Command{
	Use:   "reorder [id...]",
	Short: "Reorder the filters; every filter id must be listed once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.SessionService().ReorderFilters(ctx, currentOwner(), id, args); err != nil {
			return fmt.Errorf("failed to reorder filters: %w", err)
		}
		fmt.Println("✓ Filters reordered")
		return nil
	},
}

var filterPinCmd = &cobra.Command{
	Use:   "pin [field] [value]",
	Short: "Set the value of a pinned filter (owner_id, @status)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.SessionService().SetPinnedValue(ctx, currentOwner(), id, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to set pinned filter: %w", err)
		}
		fmt.Printf("✓ Pinned %s = %q\n", args[0], args[1])
		return nil
	},
}

var filterResetPinnedCmd = &cobra.Command{
	Use:   "reset-pinned",
	Short: "Clear the values of all pinned filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.SessionService().ResetPinnedValues(ctx, currentOwner(), id); err != nil {
			return fmt.Errorf("failed to reset pinned filters: %w", err)
		}
		fmt.Println("✓ Pinned filters cleared")
		return nil
	},
}

var filterResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every non-pinned filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := sessionID(ctx)
		if err != nil {
			return err
		}
		if err := wire.SessionService().ResetFilters(ctx, currentOwner(), id); err != nil {
			return fmt.Errorf("failed to reset filters: %w", err)
		}
		fmt.Println("✓ Filters cleared")
		return nil
	},
}

func init() {
	filterAddCmd.Flags().String("data-type", "", "Data type of the field (text, integer, decimal, date, datetime, multiple_option, ...)")

	filterCmd.AddCommand(filterAddCmd)
	filterCmd.AddCommand(filterRemoveCmd)
	filterCmd.AddCommand(filterReorderCmd)
	filterCmd.AddCommand(filterPinCmd)
	filterCmd.AddCommand(filterResetPinnedCmd)
	filterCmd.AddCommand(filterResetCmd)
}

// FilterCmd returns the filter command
func FilterCmd() *cobra.Command {
	return filterCmd
}
