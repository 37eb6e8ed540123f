package app

import (
	"github.com/example/bulkedit/internal/core/filter"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
)

func recordToSession(r *secondary.SessionRecord) *primary.Session {
	s := &primary.Session{
		ID:                r.ID,
		UserID:            r.UserID,
		Domain:            r.Domain,
		RecordType:        r.RecordType,
		Status:            r.Status,
		Columns:           r.Columns,
		Changes:           r.Changes,
		TaskID:            r.TaskID,
		NumChangedRecords: r.NumChangedRecords,
		RecordsProcessed:  r.RecordsProcessed,
		TotalRecords:      r.TotalRecords,
		PercentComplete:   r.PercentComplete,
		SideEffectIDs:     r.SideEffectIDs,
		ErrorDetail:       r.ErrorDetail,
		CreatedAt:         r.CreatedAt,
		CommittedAt:       r.CommittedAt,
		CompletedAt:       r.CompletedAt,
		ArchivedAt:        r.ArchivedAt,
	}
	s.PinnedFilters, s.Filters = splitFilters(r.Filters)
	for _, f := range r.Failures {
		s.Failures = append(s.Failures, primary.Failure{
			RecordID: f.RecordID,
			Attempts: f.Attempts,
			Error:    f.Error,
		})
	}
	return s
}

// splitFilters separates pinned filters from regular ones, keeping order.
func splitFilters(all []filter.Filter) (pinned, regular []filter.Filter) {
	for _, f := range all {
		if f.Pinned {
			pinned = append(pinned, f)
		} else {
			regular = append(regular, f)
		}
	}
	return pinned, regular
}

// joinFilters renumbers each group from zero and concatenates them.
func joinFilters(pinned, regular []filter.Filter) []filter.Filter {
	all := make([]filter.Filter, 0, len(pinned)+len(regular))
	for i, f := range pinned {
		f.Order = i
		all = append(all, f)
	}
	for i, f := range regular {
		f.Order = i
		all = append(all, f)
	}
	return all
}

// activeFilters returns the filters that narrow the selection.
func activeFilters(all []filter.Filter) []filter.Filter {
	var active []filter.Filter
	for _, f := range all {
		if f.IsActive() {
			active = append(active, f)
		}
	}
	return active
}
