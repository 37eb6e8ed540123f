// Package session contains the pure business logic for bulk-edit sessions.
// Guards are pure functions that evaluate preconditions without side effects.
package session

import (
	"fmt"

	"github.com/example/bulkedit/internal/core/errs"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	// Kind is the sentinel the denial maps to.
	Kind error
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	if r.Kind == nil {
		return fmt.Errorf("%s", r.Reason)
	}
	return fmt.Errorf("%w: %s", r.Kind, r.Reason)
}

func deny(kind error, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...), Kind: kind}
}

// AccessContext provides context for ownership checks.
type AccessContext struct {
	SessionID     string
	Exists        bool
	SessionUserID string
	SessionDomain string
	UserID        string
	Domain        string
}

// MutateContext provides context for configuration and change log mutations.
type MutateContext struct {
	SessionID string
	Status    Status
	Committed bool
}

// StartContext provides context for session creation.
type StartContext struct {
	RecordType    string
	OpenSessionID string // empty if no open session exists for the scope
}

// CommitContext provides context for the commit request guard.
type CommitContext struct {
	SessionID            string
	Status               Status
	ChangeCount          int
	ActiveFilterCount    int
	PinnedValueCount     int
	HasExplicitSelection bool
}

// CanAccess evaluates whether a user may act on a session.
// Rules:
// - Session must exist
// - Session must belong to the same user and domain
func CanAccess(ctx AccessContext) GuardResult {
	if !ctx.Exists {
		return deny(errs.ErrSessionNotFound, "session %s not found", ctx.SessionID)
	}
	if ctx.SessionUserID != ctx.UserID || ctx.SessionDomain != ctx.Domain {
		return deny(errs.ErrSessionForbidden, "session %s does not belong to %s in %s", ctx.SessionID, ctx.UserID, ctx.Domain)
	}
	return GuardResult{Allowed: true}
}

// CanMutate evaluates whether a session's filters, columns or change log
// may be modified.
// Rules:
// - Session must not be committed
// - Session must be active (archived sessions are read-only)
func CanMutate(ctx MutateContext) GuardResult {
	if ctx.Committed {
		return deny(errs.ErrSessionClosed, "session %s has been committed and is read-only", ctx.SessionID)
	}
	if ctx.Status != StatusActive {
		return deny(errs.ErrSessionClosed, "session %s is %s and is read-only", ctx.SessionID, ctx.Status)
	}
	return GuardResult{Allowed: true}
}

// CanStart evaluates whether a new session can be started for a scope.
// Rules:
// - No open session may exist for the scope
func CanStart(ctx StartContext) GuardResult {
	if ctx.OpenSessionID != "" {
		return deny(errs.ErrSessionConflict, "session %s is already open for %s. Resume it or restart", ctx.OpenSessionID, ctx.RecordType)
	}
	return GuardResult{Allowed: true}
}

// CanCommit evaluates whether a session can be committed.
// Rules:
// - Session must be active
// - Change log must not be empty
// - A selection must be defined: a filter, a pinned value or explicit ids
func CanCommit(ctx CommitContext) GuardResult {
	if ctx.Status != StatusActive {
		return deny(errs.ErrSessionClosed, "session %s is %s and cannot be committed", ctx.SessionID, ctx.Status)
	}
	if ctx.ChangeCount == 0 {
		return deny(errs.ErrValidation, "session %s has no staged changes", ctx.SessionID)
	}
	if ctx.ActiveFilterCount == 0 && ctx.PinnedValueCount == 0 && !ctx.HasExplicitSelection {
		return deny(errs.ErrValidation, "session %s has no filter or explicit selection", ctx.SessionID)
	}
	return GuardResult{Allowed: true}
}
