package session

import (
	"errors"
	"testing"

	"github.com/example/bulkedit/internal/core/errs"
)

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name        string
		ctx         AccessContext
		wantAllowed bool
		wantKind    error
	}{
		{
			name: "owner in same domain",
			ctx: AccessContext{
				SessionID: "S1", Exists: true,
				SessionUserID: "u1", SessionDomain: "d1",
				UserID: "u1", Domain: "d1",
			},
			wantAllowed: true,
		},
		{
			name:        "missing session",
			ctx:         AccessContext{SessionID: "S9", UserID: "u1", Domain: "d1"},
			wantAllowed: false,
			wantKind:    errs.ErrSessionNotFound,
		},
		{
			name: "other user",
			ctx: AccessContext{
				SessionID: "S1", Exists: true,
				SessionUserID: "u2", SessionDomain: "d1",
				UserID: "u1", Domain: "d1",
			},
			wantAllowed: false,
			wantKind:    errs.ErrSessionForbidden,
		},
		{
			name: "other domain",
			ctx: AccessContext{
				SessionID: "S1", Exists: true,
				SessionUserID: "u1", SessionDomain: "d2",
				UserID: "u1", Domain: "d1",
			},
			wantAllowed: false,
			wantKind:    errs.ErrSessionForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanAccess(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && !errors.Is(result.Error(), tt.wantKind) {
				t.Errorf("Error() = %v, want %v", result.Error(), tt.wantKind)
			}
		})
	}
}

func TestCanMutate(t *testing.T) {
	tests := []struct {
		name        string
		ctx         MutateContext
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "active session",
			ctx:         MutateContext{SessionID: "S1", Status: StatusActive},
			wantAllowed: true,
		},
		{
			name:        "committed session",
			ctx:         MutateContext{SessionID: "S1", Status: StatusCommitting, Committed: true},
			wantAllowed: false,
			wantReason:  "session S1 has been committed and is read-only",
		},
		{
			name:        "archived session",
			ctx:         MutateContext{SessionID: "S1", Status: StatusArchived},
			wantAllowed: false,
			wantReason:  "session S1 is archived and is read-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanMutate(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed {
				if result.Reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
				}
				if !errors.Is(result.Error(), errs.ErrSessionClosed) {
					t.Errorf("Error() = %v, want ErrSessionClosed", result.Error())
				}
			}
		})
	}
}

func TestCanStart(t *testing.T) {
	if r := CanStart(StartContext{RecordType: "household"}); !r.Allowed {
		t.Errorf("expected start to be allowed, got %q", r.Reason)
	}
	r := CanStart(StartContext{RecordType: "household", OpenSessionID: "S1"})
	if r.Allowed {
		t.Fatal("expected start to be denied while a session is open")
	}
	if !errors.Is(r.Error(), errs.ErrSessionConflict) {
		t.Errorf("Error() = %v, want ErrSessionConflict", r.Error())
	}
}

func TestCanCommit(t *testing.T) {
	tests := []struct {
		name        string
		ctx         CommitContext
		wantAllowed bool
		wantKind    error
	}{
		{
			name:        "changes and filter",
			ctx:         CommitContext{SessionID: "S1", Status: StatusActive, ChangeCount: 1, ActiveFilterCount: 1},
			wantAllowed: true,
		},
		{
			name:        "changes and pinned value",
			ctx:         CommitContext{SessionID: "S1", Status: StatusActive, ChangeCount: 2, PinnedValueCount: 1},
			wantAllowed: true,
		},
		{
			name:        "changes with explicit ids",
			ctx:         CommitContext{SessionID: "S1", Status: StatusActive, ChangeCount: 1, HasExplicitSelection: true},
			wantAllowed: true,
		},
		{
			name:        "empty log",
			ctx:         CommitContext{SessionID: "S1", Status: StatusActive, ActiveFilterCount: 1},
			wantAllowed: false,
			wantKind:    errs.ErrValidation,
		},
		{
			name:        "no selection",
			ctx:         CommitContext{SessionID: "S1", Status: StatusActive, ChangeCount: 1},
			wantAllowed: false,
			wantKind:    errs.ErrValidation,
		},
		{
			name:        "already committing",
			ctx:         CommitContext{SessionID: "S1", Status: StatusCommitting, ChangeCount: 1, ActiveFilterCount: 1},
			wantAllowed: false,
			wantKind:    errs.ErrSessionClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanCommit(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && !errors.Is(result.Error(), tt.wantKind) {
				t.Errorf("Error() = %v, want %v", result.Error(), tt.wantKind)
			}
		})
	}
}

func TestGuardResult_ErrorNilWhenAllowed(t *testing.T) {
	if err := (GuardResult{Allowed: true}).Error(); err != nil {
		t.Errorf("Error() = %v, want nil", err)
	}
}
