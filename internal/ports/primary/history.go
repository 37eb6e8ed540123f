package primary

import (
	"context"
	"io"
	"time"
)

// HistoryService defines the primary port for audit views of committed sessions.
type HistoryService interface {
	// ListCommitted returns summaries of committed sessions, newest first.
	ListCommitted(ctx context.Context, owner Owner, page Page) ([]*SessionSummary, error)

	// DownloadSideEffects writes the side-effect ids of a session to w, one
	// per line, and returns how many were written.
	DownloadSideEffects(ctx context.Context, owner Owner, sessionID string, w io.Writer) (int, error)

	// Events returns the audit trail of a session, oldest first.
	Events(ctx context.Context, owner Owner, sessionID string) ([]*SessionEvent, error)
}

// SessionSummary is a committed session as shown in history listings.
type SessionSummary struct {
	SessionID         string
	RecordType        string
	Status            string
	CommittedAt       *time.Time
	CompletedAt       *time.Time
	NumChangedRecords int
	PercentComplete   int
	FailureCount      int
}

// SessionEvent is one audit entry of a session.
type SessionEvent struct {
	ActorID   string
	Action    string
	FieldName string
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}
