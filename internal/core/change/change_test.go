package change

import (
	"errors"
	"testing"

	"github.com/example/bulkedit/internal/core/errs"
)

func TestValidateRegistry(t *testing.T) {
	if err := ValidateRegistry(); err != nil {
		t.Fatalf("ValidateRegistry() error = %v", err)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{in: "SET", want: ActionSet},
		{in: "find-replace", want: ActionFindReplace},
		{in: " copy_from_column ", want: ActionCopyFromColumn},
		{in: "explode", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		change  Change
		wantErr bool
	}{
		{
			name:   "set all selected",
			change: Change{Action: ActionSet, TargetField: "status", Payload: Payload{Value: "closed"}, Scope: ScopeAllSelected},
		},
		{
			name:    "unknown action",
			change:  Change{Action: "EXPLODE", TargetField: "status", Scope: ScopeAllSelected},
			wantErr: true,
		},
		{
			name:    "missing target",
			change:  Change{Action: ActionClear, Scope: ScopeAllSelected},
			wantErr: true,
		},
		{
			name:    "system property target",
			change:  Change{Action: ActionSet, TargetField: "owner_name", Scope: ScopeAllSelected},
			wantErr: true,
		},
		{
			name:    "explicit scope without ids",
			change:  Change{Action: ActionClear, TargetField: "status", Scope: ScopeExplicitIDs},
			wantErr: true,
		},
		{
			name:    "ids with all selected scope",
			change:  Change{Action: ActionClear, TargetField: "status", Scope: ScopeAllSelected, ExplicitIDs: []string{"r1"}},
			wantErr: true,
		},
		{
			name:    "unknown scope",
			change:  Change{Action: ActionClear, TargetField: "status", Scope: "SOME"},
			wantErr: true,
		},
		{
			name:    "find replace without find",
			change:  Change{Action: ActionFindReplace, TargetField: "name", Scope: ScopeAllSelected},
			wantErr: true,
		},
		{
			name:    "bad regex",
			change:  Change{Action: ActionFindReplace, TargetField: "name", Payload: Payload{Find: "(", UseRegex: true}, Scope: ScopeAllSelected},
			wantErr: true,
		},
		{
			name:    "copy from itself",
			change:  Change{Action: ActionCopyFromColumn, TargetField: "name", Payload: Payload{SourceField: "name"}, Scope: ScopeAllSelected},
			wantErr: true,
		},
		{
			name:   "copy from other column",
			change: Change{Action: ActionCopyFromColumn, TargetField: "name", Payload: Payload{SourceField: "nickname"}, Scope: ScopeExplicitIDs, ExplicitIDs: []string{"r1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.change)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUndoLast_Empty(t *testing.T) {
	_, _, err := UndoLast(nil)
	if !errors.Is(err, errs.ErrEmptyLog) {
		t.Errorf("UndoLast(nil) error = %v, want ErrEmptyLog", err)
	}
}

func TestUndoLast_RemovesHighestSequence(t *testing.T) {
	log := []Change{
		{ID: "a", Sequence: 1},
		{ID: "c", Sequence: 5},
		{ID: "b", Sequence: 3},
	}

	removed, rest, err := UndoLast(log)
	if err != nil {
		t.Fatalf("UndoLast() error = %v", err)
	}
	if removed.ID != "c" {
		t.Errorf("removed %q, want c", removed.ID)
	}
	if len(rest) != 2 || rest[0].ID != "a" || rest[1].ID != "b" {
		t.Errorf("rest = %+v, want [a b]", rest)
	}
	if len(log) != 3 {
		t.Error("UndoLast must not modify its input")
	}
}

func TestHelpers(t *testing.T) {
	log := []Change{
		{TargetField: "status", Scope: ScopeAllSelected},
		{TargetField: "name", Scope: ScopeAllSelected},
		{TargetField: "status", Scope: ScopeExplicitIDs, ExplicitIDs: []string{"r9"}},
	}
	if !HasExplicitSelection(log) {
		t.Error("HasExplicitSelection() = false, want true")
	}
	if HasExplicitSelection(log[:2]) {
		t.Error("HasExplicitSelection() = true for all-selected log")
	}
	fields := EditedFields(log)
	if len(fields) != 2 || fields[0] != "status" || fields[1] != "name" {
		t.Errorf("EditedFields() = %v, want [status name]", fields)
	}
	if !log[2].AppliesTo("r9") || log[2].AppliesTo("r1") {
		t.Error("explicit change should only apply to its ids")
	}
}
