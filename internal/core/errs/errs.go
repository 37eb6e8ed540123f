// Package errs defines the error taxonomy shared by the bulk-edit engine.
// Callers match errors with errors.Is against the sentinels below; the
// concrete types carry detail for display.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks an invalid filter, column or change definition.
	ErrValidation = errors.New("validation failed")
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionForbidden indicates the session belongs to another user or domain.
	ErrSessionForbidden = errors.New("session forbidden")
	// ErrSessionClosed indicates a mutation on a committed or archived session.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionConflict indicates an open session already exists for the scope.
	ErrSessionConflict = errors.New("session conflict")
	// ErrEmptyLog indicates undo was requested on an empty change log.
	ErrEmptyLog = errors.New("change log is empty")
	// ErrRecordWrite marks a retryable per-record write failure.
	ErrRecordWrite = errors.New("record write failed")
	// ErrStoreUnavailable marks a record store that cannot be reached at all.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrPipelineFatal marks a failure that aborts a commit run.
	ErrPipelineFatal = errors.New("commit pipeline failed")
)

// ValidationError describes which input was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RecordWriteError wraps the last error seen for a record after retries.
type RecordWriteError struct {
	RecordID string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RecordWriteError) Error() string {
	return fmt.Sprintf("record %s: write failed after %d attempt(s): %v", e.RecordID, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordWriteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRecordWrite.
func (e *RecordWriteError) Is(target error) bool {
	return target == ErrRecordWrite
}

// PipelineFatalError records the stage at which a commit run was aborted.
type PipelineFatalError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *PipelineFatalError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrPipelineFatal, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineFatalError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPipelineFatal.
func (e *PipelineFatalError) Is(target error) bool {
	return target == ErrPipelineFatal
}
