// Package column contains the pure business logic for session columns:
// defaults, system property rules and validation.
package column

import (
	"slices"
	"strings"

	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/filter"
)

// Column is a field displayed in a session and, unless it is a system
// property, editable by staged changes.
type Column struct {
	ID       string
	Field    string
	Label    string
	DataType filter.DataType
	IsSystem bool
	Order    int
}

// systemProperties are maintained by the record store and are display-only.
var systemProperties = []string{
	"@case_id",
	"@owner_id",
	"@status",
	"case_name",
	"closed_by_username",
	"closed_on",
	"last_modified_by_user_username",
	"modified_on",
	"opened_by_username",
	"opened_on",
	"owner_name",
	"server_modified_on",
}

// IsSystemProperty reports whether field is maintained by the record store.
func IsSystemProperty(field string) bool {
	return slices.Contains(systemProperties, field)
}

var defaultLabels = []struct{ field, label string }{
	{"name", "Name"},
	{"owner_name", "Owner"},
	{"opened_on", "Opened On"},
	{"opened_by_username", "Created By"},
	{"modified_on", "Last Modified On"},
	{"@status", "Status"},
}

// Defaults returns the columns a new session starts with.
func Defaults() []Column {
	cols := make([]Column, 0, len(defaultLabels))
	for i, d := range defaultLabels {
		dt := filter.DataText
		if strings.HasSuffix(d.field, "_on") {
			dt = filter.DataDateTime
		}
		cols = append(cols, Column{
			Field:    d.field,
			Label:    d.label,
			DataType: dt,
			IsSystem: IsSystemProperty(d.field),
			Order:    i,
		})
	}
	return cols
}

// New fills in the derived attributes of a column for field: the label
// defaults to the field name and the system flag is computed.
func New(field, label string, dt filter.DataType) Column {
	if label == "" {
		label = field
	}
	if dt == "" {
		dt = filter.DataText
	}
	return Column{
		Field:    field,
		Label:    label,
		DataType: dt,
		IsSystem: IsSystemProperty(field),
	}
}

// ValidateAdd checks c and that no existing column shows the same field.
func ValidateAdd(existing []Column, c Column) error {
	if strings.TrimSpace(c.Field) == "" {
		return errs.Invalid("field", "is required")
	}
	if filter.CategoryOf(c.DataType) == "" {
		return errs.Invalid("data_type", "unknown data type %q", c.DataType)
	}
	for _, e := range existing {
		if e.Field == c.Field {
			return errs.Invalid("field", "a column for %q already exists", c.Field)
		}
	}
	return nil
}
