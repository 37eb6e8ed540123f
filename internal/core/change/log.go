package change

import (
	"slices"

	"github.com/example/bulkedit/internal/core/errs"
)

// Append stamps c with sequence seq and returns the extended log.
func Append(log []Change, c Change, seq int) []Change {
	c.Sequence = seq
	return append(slices.Clone(log), c)
}

// UndoLast removes the highest-sequence change and returns it with the
// remaining log.
func UndoLast(log []Change) (Change, []Change, error) {
	if len(log) == 0 {
		return Change{}, nil, errs.ErrEmptyLog
	}
	last := 0
	for i, c := range log {
		if c.Sequence > log[last].Sequence {
			last = i
		}
	}
	removed := log[last]
	rest := slices.Delete(slices.Clone(log), last, last+1)
	return removed, rest, nil
}

// HasExplicitSelection reports whether any change targets explicit ids.
func HasExplicitSelection(log []Change) bool {
	return slices.ContainsFunc(log, func(c Change) bool { return c.Scope == ScopeExplicitIDs })
}

// EditedFields returns the distinct target fields of the log in first-edit order.
func EditedFields(log []Change) []string {
	var fields []string
	for _, c := range log {
		if !slices.Contains(fields, c.TargetField) {
			fields = append(fields, c.TargetField)
		}
	}
	return fields
}
