package filter

import (
	"fmt"
	"strings"

	"github.com/example/bulkedit/internal/core/errs"
)

// QuotedValue renders value as an xpath string literal. Values holding both
// quote characters cannot be expressed and are rejected.
func QuotedValue(value string) (string, error) {
	hasSingle := strings.Contains(value, "'")
	hasDouble := strings.Contains(value, `"`)
	if hasSingle && hasDouble {
		return "", errs.Invalid("value", "single and double quotes cannot be combined in one value")
	}
	if hasSingle {
		return `"` + value + `"`, nil
	}
	return "'" + value + "'", nil
}

var comparisonOperators = map[MatchType]string{
	MatchExact:       "=",
	MatchIsNot:       "!=",
	MatchLessThan:    "<",
	MatchLessEqual:   "<=",
	MatchGreaterThan: ">",
	MatchGreaterEq:   ">=",
}

var functionTemplates = map[MatchType]string{
	MatchStarts:      "starts-with(%s, %s)",
	MatchStartsNot:   "not(starts-with(%s, %s))",
	MatchContains:    "contains(%s, %s)",
	MatchFuzzy:       "fuzzy-match(%s, %s)",
	MatchFuzzyNot:    "not(fuzzy-match(%s, %s))",
	MatchPhonetic:    "phonetic-match(%s, %s)",
	MatchPhoneticNot: "not(phonetic-match(%s, %s))",
	MatchIsAny:       "selected-any(%s, %s)",
	MatchIsNotAny:    "not(selected-any(%s, %s))",
	MatchIsAll:       "selected-all(%s, %s)",
	MatchIsNotAll:    "not(selected-all(%s, %s))",
}

// XPath renders one filter as an xpath expression. Valueless match types
// (empty/missing) are not expressible and return "".
func (f Filter) XPath() (string, error) {
	if op, ok := comparisonOperators[f.Match]; ok {
		value := f.Value
		if CategoryOf(f.DataType) != CategoryNumber {
			quoted, err := QuotedValue(f.Value)
			if err != nil {
				return "", err
			}
			value = quoted
		}
		return fmt.Sprintf("%s %s %s", f.Field, op, value), nil
	}
	if tmpl, ok := functionTemplates[f.Match]; ok {
		quoted, err := QuotedValue(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(tmpl, f.Field, quoted), nil
	}
	return "", nil
}

// Expression joins the xpath of every active filter with "and".
func Expression(filters []Filter) (string, error) {
	var parts []string
	for _, f := range filters {
		if !f.IsActive() {
			continue
		}
		xpath, err := f.XPath()
		if err != nil {
			return "", err
		}
		if xpath != "" {
			parts = append(parts, xpath)
		}
	}
	return strings.Join(parts, " and "), nil
}
