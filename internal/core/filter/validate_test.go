package filter

import (
	"errors"
	"testing"

	"github.com/example/bulkedit/internal/core/errs"
)

func TestIsValidFor(t *testing.T) {
	tests := []struct {
		match MatchType
		dt    DataType
		want  bool
	}{
		{MatchExact, DataText, true},
		{MatchStarts, DataBarcode, true},
		{MatchStarts, DataInteger, false},
		{MatchLessThan, DataDecimal, true},
		{MatchLessThan, DataText, false},
		{MatchIsNot, DataDate, false},
		{MatchGreaterEq, DataDateTime, true},
		{MatchIsAny, DataMultipleOption, true},
		{MatchIsAny, DataText, false},
		{MatchIsEmpty, DataMultipleOption, true},
		{MatchMissing, DataGPS, true},
		{MatchExact, DataType("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.match)+"/"+string(tt.dt), func(t *testing.T) {
			if got := IsValidFor(tt.match, tt.dt); got != tt.want {
				t.Errorf("IsValidFor(%s, %s) = %v, want %v", tt.match, tt.dt, got, tt.want)
			}
		})
	}
}

func TestParseMatchType(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchType
		wantErr bool
	}{
		{in: "eq", want: MatchExact},
		{in: "EXACT", want: MatchExact},
		{in: "ne", want: MatchIsNot},
		{in: ">=", want: MatchGreaterEq},
		{in: "missing", want: MatchMissing},
		{in: "is_all", want: MatchIsAll},
		{in: "between", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMatchType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMatchType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMatchType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{"valid text", Filter{Field: "status", DataType: DataText, Match: MatchExact, Value: "open"}, false},
		{"missing field", Filter{DataType: DataText, Match: MatchExact, Value: "open"}, true},
		{"operator not valid for type", Filter{Field: "age", DataType: DataInteger, Match: MatchStarts, Value: "1"}, true},
		{"value required", Filter{Field: "status", DataType: DataText, Match: MatchExact}, true},
		{"pinned without value", Filter{Field: "@status", DataType: DataText, Match: MatchExact, Pinned: true}, false},
		{"valueless ignores value", Filter{Field: "status", DataType: DataText, Match: MatchIsEmpty}, false},
		{"non numeric number", Filter{Field: "age", DataType: DataInteger, Match: MatchExact, Value: "ten"}, true},
		{"bad date", Filter{Field: "dob", DataType: DataDate, Match: MatchLessThan, Value: "yesterday"}, true},
		{"mixed quotes", Filter{Field: "name", DataType: DataText, Match: MatchExact, Value: `a'b"c`}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.filter)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidateAdd_DuplicateFieldAndPinned(t *testing.T) {
	existing := []Filter{
		{Field: "status", DataType: DataText, Match: MatchExact, Value: "open"},
		{Field: "@status", DataType: DataText, Match: MatchExact, Pinned: true},
	}

	dup := Filter{Field: "status", DataType: DataText, Match: MatchIsNot, Value: "closed"}
	if err := ValidateAdd(existing, dup); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("ValidateAdd(duplicate) error = %v, want ErrValidation", err)
	}

	// Same field as a pinned filter is a different (field, pinned) pair.
	unpinned := Filter{Field: "@status", DataType: DataText, Match: MatchExact, Value: "open"}
	if err := ValidateAdd(existing, unpinned); err != nil {
		t.Errorf("ValidateAdd(unpinned twin) error = %v", err)
	}
}
