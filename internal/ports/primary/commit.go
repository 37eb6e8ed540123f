package primary

import "context"

// CommitService defines the primary port for committing sessions.
type CommitService interface {
	// Commit moves an active session to committing and submits the commit
	// run. It returns once the run has been handed off.
	Commit(ctx context.Context, owner Owner, sessionID string) (*CommitResponse, error)

	// Run executes the commit run of a session. Terminal sessions are a no-op.
	Run(ctx context.Context, sessionID string) error

	// RecoverPending resubmits every session left committing, returning the
	// number of sessions resubmitted.
	RecoverPending(ctx context.Context) (int, error)
}

// CommitResponse contains the result of a commit request.
type CommitResponse struct {
	SessionID string
	TaskID    string
	Status    string
}
