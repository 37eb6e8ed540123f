package primary

import (
	"context"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/core/record"
)

// ChangeLogService defines the primary port for staging edits.
type ChangeLogService interface {
	// ApplyChange validates and appends a change, returning an estimate of
	// the records it affects. No record is written.
	ApplyChange(ctx context.Context, owner Owner, sessionID string, req ApplyChangeRequest) (*ChangePreview, error)

	// UndoLast removes and returns the most recent change.
	// Fails with errs.ErrEmptyLog if the log is empty.
	UndoLast(ctx context.Context, owner Owner, sessionID string) (*change.Change, error)

	// Clear removes every staged change.
	Clear(ctx context.Context, owner Owner, sessionID string) error

	// List returns the staged changes in sequence order.
	List(ctx context.Context, owner Owner, sessionID string) ([]change.Change, error)

	// PreviewRecord replays the change log against one record without writing it.
	PreviewRecord(ctx context.Context, owner Owner, sessionID, recordID string) (*RecordPreview, error)
}

// ApplyChangeRequest contains parameters for staging a change.
type ApplyChangeRequest struct {
	Operation   string
	TargetField string
	Payload     change.Payload
	ExplicitIDs []string // Optional: scope becomes EXPLICIT_IDS when set
}

// ChangePreview is the result of staging a change.
type ChangePreview struct {
	Change           change.Change
	EstimatedRecords int
}

// RecordPreview shows a record's current values and the updates a commit
// would write to it.
type RecordPreview struct {
	RecordID string
	Current  record.Properties
	Updates  record.Properties
}
