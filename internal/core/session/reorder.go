package session

import (
	"slices"

	"github.com/example/bulkedit/internal/core/errs"
)

// Reorder returns items arranged in the order of ids. ids must name every
// item exactly once. changed is false when the order is already ids.
func Reorder[T any](items []T, idOf func(T) string, ids []string) (reordered []T, changed bool, err error) {
	if len(ids) != len(items) {
		return nil, false, errs.Invalid("ids", "expected %d ids, got %d", len(items), len(ids))
	}
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[idOf(it)] = it
	}
	seen := make(map[string]bool, len(ids))
	reordered = make([]T, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, false, errs.Invalid("ids", "unknown id %q", id)
		}
		if seen[id] {
			return nil, false, errs.Invalid("ids", "id %q listed twice", id)
		}
		seen[id] = true
		reordered = append(reordered, it)
	}
	current := make([]string, len(items))
	for i, it := range items {
		current[i] = idOf(it)
	}
	return reordered, !slices.Equal(current, ids), nil
}
