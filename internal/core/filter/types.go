// Package filter contains the pure business logic for session filters:
// data type and match type compatibility, in-process evaluation against a
// record, and rendering as the xpath query used by the search index.
package filter

import (
	"fmt"
	"strings"
)

// DataType is the declared type of the property a filter or column targets.
type DataType string

const (
	DataText           DataType = "text"
	DataInteger        DataType = "integer"
	DataPhoneNumber    DataType = "phone_number"
	DataDecimal        DataType = "decimal"
	DataDate           DataType = "date"
	DataTime           DataType = "time"
	DataDateTime       DataType = "datetime"
	DataSingleOption   DataType = "single_option"
	DataMultipleOption DataType = "multiple_option"
	DataGPS            DataType = "gps"
	DataBarcode        DataType = "barcode"
	DataPassword       DataType = "password"
)

// Category groups data types that share the same set of match types.
type Category string

const (
	CategoryText        Category = "filter_text"
	CategoryNumber      Category = "filter_number"
	CategoryDate        Category = "filter_date"
	CategoryMultiSelect Category = "filter_multi_select"
)

var categoryDataTypes = map[Category][]DataType{
	CategoryText:        {DataText, DataPhoneNumber, DataBarcode, DataPassword, DataGPS, DataSingleOption, DataTime},
	CategoryNumber:      {DataInteger, DataDecimal},
	CategoryDate:        {DataDate, DataDateTime},
	CategoryMultiSelect: {DataMultipleOption},
}

// CategoryOf returns the filter category of a data type, or "" if unknown.
func CategoryOf(dt DataType) Category {
	for category, types := range categoryDataTypes {
		for _, t := range types {
			if t == dt {
				return category
			}
		}
	}
	return ""
}

// ParseDataType normalizes s into a known DataType. An empty string is text.
func ParseDataType(s string) (DataType, error) {
	if s == "" {
		return DataText, nil
	}
	dt := DataType(strings.ToLower(strings.TrimSpace(s)))
	if CategoryOf(dt) == "" {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return dt, nil
}

// MatchType is the comparison a filter applies.
type MatchType string

const (
	MatchExact       MatchType = "exact"
	MatchIsNot       MatchType = "is_not"
	MatchStarts      MatchType = "starts"
	MatchStartsNot   MatchType = "starts_not"
	MatchContains    MatchType = "contains"
	MatchIsEmpty     MatchType = "is_empty"
	MatchIsNotEmpty  MatchType = "is_not_empty"
	MatchMissing     MatchType = "missing"
	MatchNotMissing  MatchType = "not_missing"
	MatchFuzzy       MatchType = "fuzzy"
	MatchFuzzyNot    MatchType = "not_fuzzy"
	MatchPhonetic    MatchType = "phonetic"
	MatchPhoneticNot MatchType = "not_phonetic"
	MatchLessThan    MatchType = "lt"
	MatchGreaterThan MatchType = "gt"
	MatchLessEqual   MatchType = "lte"
	MatchGreaterEq   MatchType = "gte"
	MatchIsAny       MatchType = "is_any"
	MatchIsNotAny    MatchType = "is_not_any"
	MatchIsAll       MatchType = "is_all"
	MatchIsNotAll    MatchType = "is_not_all"
)

// valueless match types are valid for every data type and ignore Value.
var valueless = map[MatchType]bool{
	MatchIsEmpty:    true,
	MatchIsNotEmpty: true,
	MatchMissing:    true,
	MatchNotMissing: true,
}

var categoryMatches = map[Category]map[MatchType]bool{
	CategoryText: {
		MatchExact: true, MatchIsNot: true, MatchStarts: true, MatchStartsNot: true,
		MatchContains: true, MatchFuzzy: true, MatchFuzzyNot: true,
		MatchPhonetic: true, MatchPhoneticNot: true,
	},
	CategoryNumber: {
		MatchExact: true, MatchIsNot: true, MatchLessThan: true, MatchLessEqual: true,
		MatchGreaterThan: true, MatchGreaterEq: true,
	},
	CategoryDate: {
		MatchExact: true, MatchLessThan: true, MatchLessEqual: true,
		MatchGreaterThan: true, MatchGreaterEq: true,
	},
	CategoryMultiSelect: {
		MatchIsAny: true, MatchIsNotAny: true, MatchIsAll: true, MatchIsNotAll: true,
	},
}

var matchAliases = map[string]MatchType{
	"eq":         MatchExact,
	"=":          MatchExact,
	"ne":         MatchIsNot,
	"!=":         MatchIsNot,
	"<":          MatchLessThan,
	"<=":         MatchLessEqual,
	">":          MatchGreaterThan,
	">=":         MatchGreaterEq,
	"not_starts": MatchStartsNot,
}

// ParseMatchType normalizes s, accepting the short aliases (eq, ne, ...).
func ParseMatchType(s string) (MatchType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := matchAliases[key]; ok {
		return alias, nil
	}
	m := MatchType(key)
	if valueless[m] {
		return m, nil
	}
	for _, matches := range categoryMatches {
		if matches[m] {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// IsValueless reports whether m ignores the filter value.
func IsValueless(m MatchType) bool {
	return valueless[m]
}

// IsValidFor reports whether match type m may be used with data type dt.
func IsValidFor(m MatchType, dt DataType) bool {
	if valueless[m] {
		return true
	}
	category := CategoryOf(dt)
	if category == "" {
		return false
	}
	return categoryMatches[category][m]
}

// Filter is one predicate narrowing the records of a session.
type Filter struct {
	ID       string
	Field    string
	DataType DataType
	Match    MatchType
	Value    string
	Pinned   bool
	Order    int
}

// IsActive reports whether the filter narrows the selection. Pinned filters
// without a stored value are shown but do not narrow.
func (f Filter) IsActive() bool {
	if f.Pinned && f.Value == "" {
		return false
	}
	return true
}
