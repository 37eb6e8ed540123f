// Package change contains the pure business logic for staged edits: the
// action registry, change validation, the change log helpers and the replay
// engine that computes a record's final values.
package change

import (
	"slices"
	"strings"
	"time"

	"github.com/example/bulkedit/internal/core/column"
	"github.com/example/bulkedit/internal/core/errs"
)

// Action names the edit a change performs on its target property.
type Action string

const (
	ActionSet            Action = "SET"
	ActionClear          Action = "CLEAR"
	ActionFindReplace    Action = "FIND_REPLACE"
	ActionCopyFromColumn Action = "COPY_FROM_COLUMN"
	ActionMakeNull       Action = "MAKE_NULL"
	ActionStrip          Action = "STRIP"
	ActionTitleCase      Action = "TITLE_CASE"
	ActionUpperCase      Action = "UPPER_CASE"
	ActionLowerCase      Action = "LOWER_CASE"
	ActionReset          Action = "RESET"
)

// Actions lists every action the engine supports, in display order.
func Actions() []Action {
	return []Action{
		ActionSet, ActionClear, ActionFindReplace, ActionCopyFromColumn,
		ActionMakeNull, ActionStrip, ActionTitleCase, ActionUpperCase,
		ActionLowerCase, ActionReset,
	}
}

// ParseAction normalizes s into a known action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !slices.Contains(Actions(), a) {
		return "", errs.Invalid("operation", "unknown operation %q", s)
	}
	return a, nil
}

// Scope selects which records of the session a change applies to.
type Scope string

const (
	ScopeAllSelected Scope = "ALL_SELECTED"
	ScopeExplicitIDs Scope = "EXPLICIT_IDS"
)

// Payload carries the action-specific arguments of a change.
type Payload struct {
	Value       string `json:"value,omitempty"`
	Find        string `json:"find,omitempty"`
	Replace     string `json:"replace,omitempty"`
	UseRegex    bool   `json:"use_regex,omitempty"`
	SourceField string `json:"source_field,omitempty"`
}

// Change is one staged edit in a session's change log.
type Change struct {
	ID          string
	Sequence    int
	Action      Action
	TargetField string
	Payload     Payload
	Scope       Scope
	ExplicitIDs []string
	CreatedAt   time.Time
}

// AppliesTo reports whether the change targets recordID.
func (c Change) AppliesTo(recordID string) bool {
	if c.Scope == ScopeExplicitIDs {
		return slices.Contains(c.ExplicitIDs, recordID)
	}
	return true
}

// Validate checks a change definition before it is staged.
func Validate(c Change) error {
	h, ok := lookup(c.Action)
	if !ok {
		return errs.Invalid("operation", "unknown operation %q", c.Action)
	}
	if strings.TrimSpace(c.TargetField) == "" {
		return errs.Invalid("target_field", "is required")
	}
	if column.IsSystemProperty(c.TargetField) {
		return errs.Invalid("target_field", "%q is a system property and cannot be edited", c.TargetField)
	}

	switch c.Scope {
	case ScopeAllSelected:
		if len(c.ExplicitIDs) > 0 {
			return errs.Invalid("explicit_ids", "only allowed with scope %s", ScopeExplicitIDs)
		}
	case ScopeExplicitIDs:
		if len(c.ExplicitIDs) == 0 {
			return errs.Invalid("explicit_ids", "at least one record id is required for scope %s", ScopeExplicitIDs)
		}
	default:
		return errs.Invalid("scope", "unknown scope %q", c.Scope)
	}

	if h.validate != nil {
		return h.validate(c)
	}
	return nil
}
