// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/core/column"
	"github.com/example/bulkedit/internal/core/filter"
)

// ErrProgressConflict is returned by SaveProgress when the stored batch
// boundary no longer matches the caller's, meaning another worker owns the run.
var ErrProgressConflict = errors.New("progress conflict")

// SessionRepository defines the secondary port for session persistence.
type SessionRepository interface {
	// Create persists a new open session. A concurrent open session for the
	// same scope fails with errs.ErrSessionConflict.
	Create(ctx context.Context, session *SessionRecord) error

	// GetByID retrieves a session with its filters, columns, change log,
	// side-effect ids and failures.
	GetByID(ctx context.Context, id string) (*SessionRecord, error)

	// GetOpen retrieves the open session for a scope. Returns nil, nil if none.
	GetOpen(ctx context.Context, scope SessionScope) (*SessionRecord, error)

	// Save replaces the filters, columns and change log of an open session.
	// Fails with errs.ErrSessionClosed if the session is no longer active.
	Save(ctx context.Context, session *SessionRecord) error

	// Restart archives the open session for the scope (if any) and creates
	// next in the same transaction. Returns the archived session id, or "".
	Restart(ctx context.Context, scope SessionScope, next *SessionRecord, archivedAt time.Time) (string, error)

	// MarkCommitted moves an active session to committing.
	// Fails with errs.ErrSessionClosed if the session is not active.
	MarkCommitted(ctx context.Context, id, taskID string, committedAt time.Time) error

	// SetTotalRecords records the size of the selection a commit run works on.
	SetTotalRecords(ctx context.Context, id string, total int) error

	// SaveProgress applies one batch worth of progress in a single
	// transaction. Fails with ErrProgressConflict if the stored
	// records_processed differs from progress.ExpectedProcessed.
	SaveProgress(ctx context.Context, id string, progress BatchProgress) error

	// Finish moves a committing session to a terminal status.
	Finish(ctx context.Context, id string, result FinishRecord) error

	// ListCommitted lists committed sessions of a user in a domain, most
	// recently committed first.
	ListCommitted(ctx context.Context, userID, domain string, limit, offset int) ([]*SessionRecord, error)

	// ListByStatus lists sessions in a status across all scopes.
	ListByStatus(ctx context.Context, status string) ([]*SessionRecord, error)
}

// SessionScope identifies the (user, domain, record type) a session belongs to.
type SessionScope struct {
	UserID     string
	Domain     string
	RecordType string
}

// SessionRecord represents a session as stored in persistence.
type SessionRecord struct {
	ID                string
	UserID            string
	Domain            string
	RecordType        string
	Status            string
	Filters           []filter.Filter // pinned and regular, each in order
	Columns           []column.Column
	Changes           []change.Change
	NextSequence      int
	TaskID            string // Empty string means null
	NumChangedRecords int
	RecordsProcessed  int
	LastRecordID      string // Empty string means null; resume cursor of a commit run
	TotalRecords      int
	PercentComplete   int
	SideEffectIDs     []string
	Failures          []FailureRecord
	FailureCount      int
	ErrorDetail       string // Empty string means null
	CreatedAt         time.Time
	CommittedAt       *time.Time
	CompletedAt       *time.Time
	ArchivedAt        *time.Time
}

// FailureRecord is a record that could not be written during a commit run.
type FailureRecord struct {
	RecordID string
	Attempts int
	Error    string
}

// BatchProgress is the delta produced by one committed batch.
type BatchProgress struct {
	ExpectedProcessed int
	Processed         int
	LastRecordID      string
	Changed           int
	PercentComplete   int
	SideEffectIDs     []string
	Failures          []FailureRecord
}

// FinishRecord describes the terminal state of a commit run.
type FinishRecord struct {
	Status          string
	CompletedAt     *time.Time
	PercentComplete int
	ErrorDetail     string
}
