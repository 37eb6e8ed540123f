package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/bulkedit/internal/core/errs"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// Validate checks a filter definition in isolation. Uniqueness against the
// other filters of a session is checked by ValidateAdd.
func Validate(f Filter) error {
	if strings.TrimSpace(f.Field) == "" {
		return errs.Invalid("field", "is required")
	}
	if CategoryOf(f.DataType) == "" {
		return errs.Invalid("data_type", "unknown data type %q", f.DataType)
	}
	if !IsValidFor(f.Match, f.DataType) {
		return errs.Invalid("operator", "%q is not valid for %s properties", f.Match, f.DataType)
	}
	if IsValueless(f.Match) {
		return nil
	}
	if f.Value == "" {
		if f.Pinned {
			return nil
		}
		return errs.Invalid("value", "is required for operator %q", f.Match)
	}

	switch CategoryOf(f.DataType) {
	case CategoryNumber:
		if _, ok := parseNumber(f.Value); !ok {
			return errs.Invalid("value", "%q is not a number", f.Value)
		}
		return nil
	case CategoryDate:
		if _, ok := parseDate(f.Value); !ok {
			return errs.Invalid("value", "%q is not a date", f.Value)
		}
	}
	if _, err := QuotedValue(f.Value); err != nil {
		return err
	}
	return nil
}

// ValidateAdd checks f and that no existing filter has the same
// (field, pinned) pair.
func ValidateAdd(existing []Filter, f Filter) error {
	if err := Validate(f); err != nil {
		return err
	}
	for _, e := range existing {
		if e.Field == f.Field && e.Pinned == f.Pinned {
			kind := "filter"
			if f.Pinned {
				kind = "pinned filter"
			}
			return errs.Invalid("field", "a %s on %q already exists", kind, f.Field)
		}
	}
	return nil
}
