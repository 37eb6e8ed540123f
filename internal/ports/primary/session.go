// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the CLI and workers drive the engine.
package primary

import (
	"context"
	"time"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/core/column"
	"github.com/example/bulkedit/internal/core/filter"
)

// SessionService defines the primary port for session registry and
// configuration operations.
type SessionService interface {
	// GetActive returns the open session for a scope, or nil if none.
	GetActive(ctx context.Context, scope Scope) (*Session, error)

	// Start creates a new session. Fails with errs.ErrSessionConflict if one
	// is already open for the scope.
	Start(ctx context.Context, scope Scope) (*Session, error)

	// StartOrResume returns the open session for the scope, starting one if
	// none exists. resumed reports whether an existing session was returned.
	StartOrResume(ctx context.Context, scope Scope) (session *Session, resumed bool, err error)

	// Restart archives any open session for the scope and starts a new one.
	Restart(ctx context.Context, scope Scope) (*Session, error)

	// GetSession retrieves a session owned by owner, in any state.
	GetSession(ctx context.Context, owner Owner, sessionID string) (*Session, error)

	// ListCommitted lists committed sessions, most recently committed first.
	ListCommitted(ctx context.Context, owner Owner, page Page) ([]*Session, error)

	// AddFilter validates and appends a filter.
	AddFilter(ctx context.Context, owner Owner, sessionID string, req AddFilterRequest) (*filter.Filter, error)

	// RemoveFilter removes a non-pinned filter by id or field. Removing an
	// absent filter is a no-op.
	RemoveFilter(ctx context.Context, owner Owner, sessionID, fieldOrID string) error

	// ReorderFilters reorders the non-pinned filters. ids must list every
	// filter exactly once.
	ReorderFilters(ctx context.Context, owner Owner, sessionID string, ids []string) error

	// SetPinnedValue stores the value of a pinned filter.
	SetPinnedValue(ctx context.Context, owner Owner, sessionID, field, value string) error

	// ResetPinnedValues clears the values of all pinned filters.
	ResetPinnedValues(ctx context.Context, owner Owner, sessionID string) error

	// ResetFilters removes all non-pinned filters.
	ResetFilters(ctx context.Context, owner Owner, sessionID string) error

	// Expression renders the effective filters as a search expression.
	Expression(ctx context.Context, owner Owner, sessionID string) (string, error)

	// AddColumn validates and appends a column.
	AddColumn(ctx context.Context, owner Owner, sessionID string, req AddColumnRequest) (*column.Column, error)

	// RemoveColumn removes a column by id or field. Removing an absent
	// column is a no-op.
	RemoveColumn(ctx context.Context, owner Owner, sessionID, fieldOrID string) error

	// ReorderColumns reorders the columns. ids must list every column exactly once.
	ReorderColumns(ctx context.Context, owner Owner, sessionID string, ids []string) error
}

// Scope identifies the (user, domain, record type) a session is opened for.
type Scope struct {
	UserID     string
	Domain     string
	RecordType string
}

// Owner returns the user and domain part of the scope.
func (s Scope) Owner() Owner {
	return Owner{UserID: s.UserID, Domain: s.Domain}
}

// Owner identifies the caller acting on a session.
type Owner struct {
	UserID string
	Domain string
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// AddFilterRequest contains parameters for adding a filter.
type AddFilterRequest struct {
	Field    string
	DataType string // Optional: defaults to text
	Operator string
	Value    string
}

// AddColumnRequest contains parameters for adding a column.
type AddColumnRequest struct {
	Field    string
	Label    string // Optional: defaults to the field name
	DataType string // Optional: defaults to text
}

// Session represents a session at the port boundary.
// Status lifecycle: active → committing → completed | failed; active → archived
type Session struct {
	ID                string
	UserID            string
	Domain            string
	RecordType        string
	Status            string
	Filters           []filter.Filter
	PinnedFilters     []filter.Filter
	Columns           []column.Column
	Changes           []change.Change
	TaskID            string
	NumChangedRecords int
	RecordsProcessed  int
	TotalRecords      int
	PercentComplete   int
	SideEffectIDs     []string
	Failures          []Failure
	ErrorDetail       string
	CreatedAt         time.Time
	CommittedAt       *time.Time
	CompletedAt       *time.Time
	ArchivedAt        *time.Time
}

// Failure is a record that could not be written during commit.
type Failure struct {
	RecordID string
	Attempts int
	Error    string
}
