package primary

import (
	"context"

	"github.com/example/bulkedit/internal/core/record"
)

// RecordService defines the primary port for loading and browsing records.
type RecordService interface {
	// Import creates or replaces records, returning how many were stored.
	Import(ctx context.Context, req ImportRecordsRequest) (int, error)

	// List returns records of a type matching the filters of a session, or
	// all records when sessionID is empty.
	List(ctx context.Context, req ListRecordsRequest) ([]record.Ref, error)
}

// ImportRecordsRequest contains the records to import.
type ImportRecordsRequest struct {
	Domain     string
	RecordType string
	Records    []record.Ref
}

// ListRecordsRequest contains parameters for listing records.
type ListRecordsRequest struct {
	Owner      Owner
	RecordType string
	SessionID  string // Optional: apply this session's filters
	Limit      int
}
