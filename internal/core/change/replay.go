package change

import (
	"slices"

	"github.com/example/bulkedit/internal/core/record"
)

// Replay applies changes in sequence order to a record and returns the
// properties whose final value differs from current. Each change sees the
// values produced by the changes before it. An empty result means the record
// needs no write.
func Replay(changes []Change, recordID string, current record.Properties) record.Properties {
	ordered := slices.Clone(changes)
	slices.SortStableFunc(ordered, func(a, b Change) int { return a.Sequence - b.Sequence })

	state := current.Clone()
	touched := map[string]bool{}
	for _, c := range ordered {
		if !c.AppliesTo(recordID) {
			continue
		}
		h, ok := lookup(c.Action)
		if !ok {
			continue
		}
		state[c.TargetField] = h.apply(input{
			current:  state[c.TargetField],
			original: current[c.TargetField],
			props:    state,
			payload:  c.Payload,
		})
		touched[c.TargetField] = true
	}

	updates := record.Properties{}
	for field := range touched {
		before, had := current[field]
		after := state[field]
		if had && equal(before, after) {
			continue
		}
		if !had && after == nil {
			continue
		}
		updates[field] = after
	}
	return updates
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
