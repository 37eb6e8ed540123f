package filter

import (
	"errors"
	"testing"

	"github.com/example/bulkedit/internal/core/errs"
)

func TestFilter_XPath(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"exact text", Filter{Field: "name", DataType: DataText, Match: MatchExact, Value: "Riny Iola"}, "name = 'Riny Iola'"},
		{"single quote", Filter{Field: "name", DataType: DataText, Match: MatchExact, Value: "Happy's"}, `name = "Happy's"`},
		{"double quote", Filter{Field: "name", DataType: DataText, Match: MatchExact, Value: `Zesty "orange" Flora`}, `name = 'Zesty "orange" Flora'`},
		{"exact number", Filter{Field: "height_cm", DataType: DataDecimal, Match: MatchExact, Value: "11.2"}, "height_cm = 11.2"},
		{"exact date", Filter{Field: "watered_on", DataType: DataDate, Match: MatchExact, Value: "2024-12-11"}, "watered_on = '2024-12-11'"},
		{"is not text", Filter{Field: "phone_num", DataType: DataPhoneNumber, Match: MatchIsNot, Value: "11245523233"}, "phone_num != '11245523233'"},
		{"is not number", Filter{Field: "num_leaves", DataType: DataInteger, Match: MatchIsNot, Value: "5"}, "num_leaves != 5"},
		{"less than date", Filter{Field: "watered_on", DataType: DataDateTime, Match: MatchLessThan, Value: "2025-02-03 16:43"}, "watered_on < '2025-02-03 16:43'"},
		{"less equal number", Filter{Field: "weight_kg", DataType: DataDecimal, Match: MatchLessEqual, Value: "35.5"}, "weight_kg <= 35.5"},
		{"greater than number", Filter{Field: "amount", DataType: DataInteger, Match: MatchGreaterThan, Value: "15"}, "amount > 15"},
		{"greater equal date", Filter{Field: "submitted_on", DataType: DataDate, Match: MatchGreaterEq, Value: "2025-03-03"}, "submitted_on >= '2025-03-03'"},
		{"starts with", Filter{Field: "name", DataType: DataText, Match: MatchStarts, Value: "st"}, "starts-with(name, 'st')"},
		{"starts with single quote", Filter{Field: "name", DataType: DataText, Match: MatchStarts, Value: "st's"}, `starts-with(name, "st's")`},
		{"starts not", Filter{Field: "favorite_park", DataType: DataText, Match: MatchStartsNot, Value: "fo"}, "not(starts-with(favorite_park, 'fo'))"},
		{"contains", Filter{Field: "name", DataType: DataText, Match: MatchContains, Value: "ol"}, "contains(name, 'ol')"},
		{"fuzzy", Filter{Field: "pot_type", DataType: DataText, Match: MatchFuzzy, Value: "ceremic"}, "fuzzy-match(pot_type, 'ceremic')"},
		{"fuzzy not", Filter{Field: "pot_type", DataType: DataText, Match: MatchFuzzyNot, Value: "ceremic"}, "not(fuzzy-match(pot_type, 'ceremic'))"},
		{"phonetic", Filter{Field: "light_level", DataType: DataText, Match: MatchPhonetic, Value: "hi"}, "phonetic-match(light_level, 'hi')"},
		{"is any", Filter{Field: "health_issues", DataType: DataMultipleOption, Match: MatchIsAny, Value: "yellow_leaves root_rot"}, "selected-any(health_issues, 'yellow_leaves root_rot')"},
		{"is not all", Filter{Field: "soil_contents", DataType: DataMultipleOption, Match: MatchIsNotAll, Value: "bark worm_castings"}, "not(selected-all(soil_contents, 'bark worm_castings'))"},
		{"valueless has no xpath", Filter{Field: "name", DataType: DataText, Match: MatchIsEmpty}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter.XPath()
			if err != nil {
				t.Fatalf("XPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("XPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilter_XPathMixedQuotes(t *testing.T) {
	f := Filter{Field: "name", DataType: DataText, Match: MatchStarts, Value: `it's "odd"`}
	_, err := f.XPath()
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("XPath() error = %v, want validation error", err)
	}
}

func TestExpression(t *testing.T) {
	filters := []Filter{
		{Field: "status", DataType: DataText, Match: MatchExact, Value: "open"},
		{Field: "age", DataType: DataInteger, Match: MatchGreaterThan, Value: "10"},
		{Field: "name", DataType: DataText, Match: MatchMissing},
		{Field: PinnedCaseStatus, DataType: DataText, Match: MatchExact, Pinned: true},
	}

	got, err := Expression(filters)
	if err != nil {
		t.Fatalf("Expression() error = %v", err)
	}
	want := "status = 'open' and age > 10"
	if got != want {
		t.Errorf("Expression() = %q, want %q", got, want)
	}
}
