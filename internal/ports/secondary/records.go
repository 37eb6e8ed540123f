package secondary

import (
	"context"
	"iter"

	"github.com/example/bulkedit/internal/core/filter"
	"github.com/example/bulkedit/internal/core/record"
)

// RecordQuery describes a record selection.
type RecordQuery struct {
	Domain     string
	RecordType string
	Filters    []filter.Filter
	// IDs restricts the selection to these records when non-empty.
	IDs []string
	// AfterID starts the selection after this record id.
	AfterID string
}

// RecordSelector defines the secondary port for enumerating the records a
// session targets.
type RecordSelector interface {
	// Count returns the number of records Select would yield.
	Count(ctx context.Context, query RecordQuery) (int, error)

	// Select lazily yields matching records ordered by id. The sequence may
	// be re-invoked from the start or from AfterID but cannot resume
	// mid-stream. Errors are yielded in place of a record and end the sequence.
	Select(ctx context.Context, query RecordQuery) iter.Seq2[record.Ref, error]
}

// RecordWrite is one record update produced by replaying a change log.
type RecordWrite struct {
	SessionID string
	Domain    string
	RecordID  string
	Updates   record.Properties
}

// RecordStore defines the secondary port for writing record updates.
type RecordStore interface {
	// Write applies updates to a record and returns the side-effect id it
	// produced. Failures wrap errs.ErrRecordWrite (retryable) or
	// errs.ErrStoreUnavailable (fatal).
	Write(ctx context.Context, w RecordWrite) (string, error)

	// Put creates or replaces a record. Used by imports.
	Put(ctx context.Context, domain, recordType string, ref record.Ref) error
}
