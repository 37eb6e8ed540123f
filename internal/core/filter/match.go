package filter

import (
	"slices"
	"strings"
	"unicode"

	"github.com/example/bulkedit/internal/core/record"
)

// Matches evaluates f against a record's properties. Inactive filters match
// everything. For value comparisons a missing property compares as "".
func Matches(f Filter, props record.Properties) bool {
	if !f.IsActive() {
		return true
	}
	value, set := props.Get(f.Field)

	switch f.Match {
	case MatchIsEmpty:
		return set && value == ""
	case MatchIsNotEmpty:
		return set && value != ""
	case MatchMissing:
		return !set
	case MatchNotMissing:
		return set
	}

	switch CategoryOf(f.DataType) {
	case CategoryNumber:
		return matchNumber(f, value)
	case CategoryDate:
		return matchDate(f, value)
	case CategoryMultiSelect:
		return matchMultiSelect(f, value)
	default:
		return matchText(f, value)
	}
}

// MatchesAll reports whether props satisfies every filter.
func MatchesAll(filters []Filter, props record.Properties) bool {
	for _, f := range filters {
		if !Matches(f, props) {
			return false
		}
	}
	return true
}

func matchText(f Filter, value string) bool {
	switch f.Match {
	case MatchExact:
		return value == f.Value
	case MatchIsNot:
		return value != f.Value
	case MatchStarts:
		return strings.HasPrefix(value, f.Value)
	case MatchStartsNot:
		return !strings.HasPrefix(value, f.Value)
	case MatchContains:
		return strings.Contains(value, f.Value)
	case MatchFuzzy:
		return fuzzyMatch(value, f.Value)
	case MatchFuzzyNot:
		return !fuzzyMatch(value, f.Value)
	case MatchPhonetic:
		return soundex(value) == soundex(f.Value)
	case MatchPhoneticNot:
		return soundex(value) != soundex(f.Value)
	}
	return false
}

func compare(cmp int, m MatchType) bool {
	switch m {
	case MatchExact:
		return cmp == 0
	case MatchIsNot:
		return cmp != 0
	case MatchLessThan:
		return cmp < 0
	case MatchLessEqual:
		return cmp <= 0
	case MatchGreaterThan:
		return cmp > 0
	case MatchGreaterEq:
		return cmp >= 0
	}
	return false
}

func matchNumber(f Filter, value string) bool {
	want, ok := parseNumber(f.Value)
	if !ok {
		return false
	}
	got, ok := parseNumber(value)
	if !ok {
		return f.Match == MatchIsNot
	}
	switch {
	case got < want:
		return compare(-1, f.Match)
	case got > want:
		return compare(1, f.Match)
	default:
		return compare(0, f.Match)
	}
}

func matchDate(f Filter, value string) bool {
	want, ok := parseDate(f.Value)
	if !ok {
		return false
	}
	got, ok := parseDate(value)
	if !ok {
		return false
	}
	return compare(got.Compare(want), f.Match)
}

func matchMultiSelect(f Filter, value string) bool {
	selected := strings.Fields(value)
	wanted := strings.Fields(f.Value)

	anySelected := false
	allSelected := true
	for _, w := range wanted {
		if slices.Contains(selected, w) {
			anySelected = true
		} else {
			allSelected = false
		}
	}

	switch f.Match {
	case MatchIsAny:
		return anySelected
	case MatchIsNotAny:
		return !anySelected
	case MatchIsAll:
		return allSelected
	case MatchIsNotAll:
		return !allSelected
	}
	return false
}

// fuzzyMatch is case-insensitive and tolerates up to two edits.
func fuzzyMatch(value, want string) bool {
	a := strings.ToLower(value)
	b := strings.ToLower(want)
	if strings.Contains(a, b) {
		return true
	}
	return levenshtein(a, b) <= 2
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

var soundexCodes = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// soundex returns the American Soundex code of the first word in s.
func soundex(s string) string {
	var out []byte
	var last byte
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) {
			if len(out) > 0 {
				break
			}
			continue
		}
		code := soundexCodes[r]
		if len(out) == 0 {
			out = append(out, byte(unicode.ToUpper(r)))
			last = code
			continue
		}
		if code != 0 && code != last {
			out = append(out, code)
		}
		if r != 'h' && r != 'w' {
			last = code
		}
		if len(out) == 4 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	for len(out) < 4 {
		out = append(out, '0')
	}
	return string(out)
}
