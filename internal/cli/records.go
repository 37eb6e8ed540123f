package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/bulkedit/internal/core/record"
	"github.com/example/bulkedit/internal/db"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/wire"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Load and browse the records sessions edit",
}

// recordsFile is the YAML layout accepted by `records import`.
type recordsFile struct {
	Records []struct {
		ID         string             `yaml:"id"`
		Properties map[string]*string `yaml:"properties"`
	} `yaml:"records"`
}

// parseRecords decodes a records file. A null property is kept as a null.
func parseRecords(r io.Reader) ([]record.Ref, error) {
	var file recordsFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	refs := make([]record.Ref, len(file.Records))
	for i, rec := range file.Records {
		props := make(record.Properties, len(rec.Properties))
		for k, v := range rec.Properties {
			props[k] = v
		}
		refs[i] = record.Ref{ID: strings.TrimSpace(rec.ID), Properties: props}
	}
	return refs, nil
}

var recordsImportCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Create or replace records of --type from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		refs, err := parseRecords(f)
		if err != nil {
			return err
		}
		n, err := wire.RecordService().Import(cmd.Context(), primary.ImportRecordsRequest{
			Domain:     flagDomain,
			RecordType: flagRecordType,
			Records:    refs,
		})
		if err != nil {
			return fmt.Errorf("failed to import records: %w", err)
		}
		fmt.Printf("✓ Imported %d %s record(s)\n", n, flagRecordType)
		return nil
	},
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records of --type; with --session, only those the session selects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		fields, _ := cmd.Flags().GetStringSlice("fields")

		refs, err := wire.RecordService().List(cmd.Context(), primary.ListRecordsRequest{
			Owner:      currentOwner(),
			RecordType: flagRecordType,
			SessionID:  flagSession,
			Limit:      limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		if len(refs) == 0 {
			fmt.Println("No records found")
			return nil
		}

		if len(fields) == 0 {
			fields = propertyNames(refs)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\t%s\n", strings.Join(fields, "\t"))
		for _, ref := range refs {
			values := make([]string, len(fields))
			for i, field := range fields {
				values[i] = formatValue(ref.Properties[field])
			}
			fmt.Fprintf(w, "%s\t%s\n", ref.ID, strings.Join(values, "\t"))
		}
		return w.Flush()
	},
}

func propertyNames(refs []record.Ref) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ref := range refs {
		for k := range ref.Properties {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

var recordsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load development fixture records of --type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		if err := db.SeedFixtures(wire.DB(), flagDomain, flagRecordType, count); err != nil {
			return err
		}
		fmt.Printf("✓ Seeded %d %s record(s)\n", count, flagRecordType)
		return nil
	},
}

func init() {
	recordsListCmd.Flags().Int("limit", 50, "Maximum number of records (0 = all)")
	recordsListCmd.Flags().StringSlice("fields", nil, "Properties to show (defaults to all)")
	recordsSeedCmd.Flags().Int("count", 25, "Number of records to create")

	recordsCmd.AddCommand(recordsImportCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsSeedCmd)
}

// RecordsCmd returns the records command
func RecordsCmd() *cobra.Command {
	return recordsCmd
}
