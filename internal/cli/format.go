package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/core/filter"
	"github.com/example/bulkedit/internal/core/record"
	"github.com/example/bulkedit/internal/ports/primary"
)

func colorizeStatus(status string) string {
	upper := strings.ToUpper(status)
	switch status {
	case "active":
		return color.New(color.FgHiBlue).Sprint(upper)
	case "committing":
		return color.New(color.FgYellow).Sprint(upper)
	case "failed":
		return color.New(color.FgRed).Sprint(upper)
	case "completed":
		return color.New(color.FgHiGreen).Sprint(upper)
	default:
		return upper
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printSession(w io.Writer, s *primary.Session) {
	fmt.Fprintf(w, "Session %s [%s]\n", s.ID, colorizeStatus(s.Status))
	fmt.Fprintf(w, "  Scope:   %s / %s / %s\n", s.UserID, s.Domain, s.RecordType)
	fmt.Fprintf(w, "  Created: %s\n", formatTime(&s.CreatedAt))
	if s.CommittedAt != nil {
		fmt.Fprintf(w, "  Committed: %s  Completed: %s\n", formatTime(s.CommittedAt), formatTime(s.CompletedAt))
		fmt.Fprintf(w, "  Progress: %d%% (%d/%d processed, %d changed, %d failed)\n",
			s.PercentComplete, s.RecordsProcessed, s.TotalRecords, s.NumChangedRecords, len(s.Failures))
	}
	if s.ErrorDetail != "" {
		fmt.Fprintf(w, "  Error: %s\n", color.RedString(s.ErrorDetail))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Pinned filters:")
	printFilters(w, s.PinnedFilters)
	fmt.Fprintln(w, "Filters:")
	printFilters(w, s.Filters)

	fmt.Fprintln(w, "Columns:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range s.Columns {
		system := ""
		if c.IsSystem {
			system = color.New(color.FgHiBlack).Sprint("system")
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", c.Order, c.Field, c.Label, c.DataType, system)
	}
	tw.Flush()

	fmt.Fprintf(w, "Changes (%d):\n", len(s.Changes))
	printChanges(w, s)

	for _, f := range s.Failures {
		fmt.Fprintf(w, "  %s %s after %d attempt(s): %s\n", color.RedString("✗"), f.RecordID, f.Attempts, f.Error)
	}
}

func printFilters(w io.Writer, filters []filter.Filter) {
	if len(filters) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range filters {
		value := f.Value
		if f.Pinned && value == "" {
			value = color.New(color.FgHiBlack).Sprint("(unset)")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", f.ID, f.Field, f.DataType, f.Match, value)
	}
	tw.Flush()
}

func printChanges(w io.Writer, s *primary.Session) {
	if len(s.Changes) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range s.Changes {
		scope := "all selected"
		if len(c.ExplicitIDs) > 0 {
			scope = fmt.Sprintf("%d record(s)", len(c.ExplicitIDs))
		}
		fmt.Fprintf(tw, "  #%d\t%s\t%s\t%s\t%s\n", c.Sequence, c.Action, c.TargetField, describePayload(c.Payload), scope)
	}
	tw.Flush()
}

func describePayload(p change.Payload) string {
	switch {
	case p.Find != "":
		return fmt.Sprintf("%q → %q", p.Find, p.Replace)
	case p.SourceField != "":
		return "from " + p.SourceField
	case p.Value != "":
		return fmt.Sprintf("%q", p.Value)
	default:
		return ""
	}
}

func formatValue(v *string) string {
	if v == nil {
		return color.New(color.FgHiBlack).Sprint("null")
	}
	return *v
}

func printProperties(w io.Writer, props record.Properties) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%s\n", k, formatValue(props[k]))
	}
	tw.Flush()
}
