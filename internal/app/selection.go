package app

import (
	"slices"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// selectionQuery builds the record query a session's commit works on: the
// active filters, or the union of explicit ids when no filter narrows.
func selectionQuery(r *secondary.SessionRecord) secondary.RecordQuery {
	query := secondary.RecordQuery{
		Domain:     r.Domain,
		RecordType: r.RecordType,
		Filters:    activeFilters(r.Filters),
	}
	if len(query.Filters) == 0 {
		query.IDs = explicitIDs(r.Changes)
	}
	return query
}

// explicitIDs returns the sorted union of the ids of EXPLICIT_IDS changes.
func explicitIDs(changes []change.Change) []string {
	var ids []string
	for _, c := range changes {
		if c.Scope == change.ScopeExplicitIDs {
			ids = append(ids, c.ExplicitIDs...)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
