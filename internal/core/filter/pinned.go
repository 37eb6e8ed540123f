package filter

// Pinned filter kinds created for every new session.
const (
	PinnedCaseOwners = "owner_id"
	PinnedCaseStatus = "@status"
)

// DefaultPinned returns the pinned filters a new session starts with. They
// carry no value, so they do not narrow until the user sets one.
func DefaultPinned() []Filter {
	return []Filter{
		{Field: PinnedCaseOwners, DataType: DataMultipleOption, Match: MatchIsAny, Pinned: true, Order: 0},
		{Field: PinnedCaseStatus, DataType: DataText, Match: MatchExact, Pinned: true, Order: 1},
	}
}
