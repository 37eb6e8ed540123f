package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"github.com/example/bulkedit/internal/core/change"
	coresession "github.com/example/bulkedit/internal/core/session"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
	"github.com/example/bulkedit/internal/retry"
)

// TaskCommitSession is the executor task name of a commit run.
const TaskCommitSession = "commit_session"

// CommitOptions tunes the commit pipeline.
type CommitOptions struct {
	BatchSize       int
	Concurrency     int
	WritesPerSecond float64 // 0 = unlimited
	Retry           retry.Config
}

// DefaultCommitOptions returns the options used when none are configured.
func DefaultCommitOptions() CommitOptions {
	return CommitOptions{
		BatchSize:   100,
		Concurrency: 4,
		Retry:       retry.DefaultConfig(),
	}
}

// CommitServiceImpl implements the CommitService interface.
type CommitServiceImpl struct {
	sessionAccess
	auditTrail
	selector secondary.RecordSelector
	store    secondary.RecordStore
	executor secondary.TaskExecutor
	opts     CommitOptions
	limiter  *rate.Limiter
	metrics  pipelineMetrics
	now      func() time.Time
	newID    func() string
}

// NewCommitService creates a new CommitService with injected dependencies.
func NewCommitService(
	sessionRepo secondary.SessionRepository,
	selector secondary.RecordSelector,
	store secondary.RecordStore,
	executor secondary.TaskExecutor,
	logWriter secondary.LogWriter,
	opts CommitOptions,
) *CommitServiceImpl {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultCommitOptions().BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	limit := rate.Inf
	burst := 0
	if opts.WritesPerSecond > 0 {
		limit = rate.Limit(opts.WritesPerSecond)
		burst = max(1, int(opts.WritesPerSecond))
	}
	return &CommitServiceImpl{
		sessionAccess: sessionAccess{repo: sessionRepo},
		auditTrail:    auditTrail{logWriter: logWriter},
		selector:      selector,
		store:         store,
		executor:      executor,
		opts:          opts,
		limiter:       rate.NewLimiter(limit, burst),
		metrics:       newPipelineMetrics(),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Commit moves an active session to committing and submits its commit run.
func (s *CommitServiceImpl) Commit(ctx context.Context, owner primary.Owner, sessionID string) (*primary.CommitResponse, error) {
	record, err := s.loadOwned(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}

	// Guard: change log and selection preconditions
	pinned, regular := splitFilters(record.Filters)
	guardCtx := coresession.CommitContext{
		SessionID:            record.ID,
		Status:               coresession.Status(record.Status),
		ChangeCount:          len(record.Changes),
		ActiveFilterCount:    len(activeFilters(regular)),
		PinnedValueCount:     len(activeFilters(pinned)),
		HasExplicitSelection: change.HasExplicitSelection(record.Changes),
	}
	if result := coresession.CanCommit(guardCtx); !result.Allowed {
		return nil, result.Error()
	}

	transition, err := coresession.ApplyTransition(guardCtx.Status, coresession.StatusCommitting, s.now())
	if err != nil {
		return nil, err
	}
	taskID := s.newID()
	if err := s.repo.MarkCommitted(ctx, sessionID, taskID, *transition.CommittedAt); err != nil {
		return nil, fmt.Errorf("failed to mark session committed: %w", err)
	}
	s.updated(ctx, sessionID, "status", record.Status, string(transition.NewStatus))

	task := secondary.Task{
		ID:        taskID,
		Name:      TaskCommitSession,
		SessionID: sessionID,
		UserID:    owner.UserID,
	}
	if err := s.executor.Submit(ctx, task); err != nil {
		detail := fmt.Sprintf("failed to submit commit task: %v", err)
		if ferr := s.repo.Finish(ctx, sessionID, secondary.FinishRecord{
			Status:      string(coresession.StatusFailed),
			ErrorDetail: detail,
		}); ferr != nil {
			log.Error(ctx, ferr, log.KV{K: "msg", V: "failed to mark session failed"}, log.KV{K: "session_id", V: sessionID})
		} else {
			s.updated(ctx, sessionID, "status", string(transition.NewStatus), string(coresession.StatusFailed))
		}
		return nil, fmt.Errorf("failed to submit commit task: %w", err)
	}

	log.Info(ctx,
		log.KV{K: "msg", V: "session committed"},
		log.KV{K: "session_id", V: sessionID},
		log.KV{K: "task_id", V: taskID},
		log.KV{K: "changes", V: len(record.Changes)},
	)
	return &primary.CommitResponse{
		SessionID: sessionID,
		TaskID:    taskID,
		Status:    string(transition.NewStatus),
	}, nil
}

// RecoverPending resubmits every session left committing by a previous worker.
func (s *CommitServiceImpl) RecoverPending(ctx context.Context) (int, error) {
	records, err := s.repo.ListByStatus(ctx, string(coresession.StatusCommitting))
	if err != nil {
		return 0, fmt.Errorf("failed to list committing sessions: %w", err)
	}

	submitted := 0
	for _, r := range records {
		taskID := r.TaskID
		if taskID == "" {
			taskID = s.newID()
		}
		task := secondary.Task{ID: taskID, Name: TaskCommitSession, SessionID: r.ID, UserID: r.UserID}
		if err := s.executor.Submit(ctx, task); err != nil {
			return submitted, fmt.Errorf("failed to resubmit session %s: %w", r.ID, err)
		}
		submitted++
		log.Info(ctx,
			log.KV{K: "msg", V: "resubmitted pending commit"},
			log.KV{K: "session_id", V: r.ID},
			log.KV{K: "records_processed", V: r.RecordsProcessed},
		)
	}
	return submitted, nil
}

// HandleTask is the executor handler for commit runs.
func (s *CommitServiceImpl) HandleTask(ctx context.Context, task secondary.Task) error {
	return s.Run(ctx, task.SessionID)
}

// Ensure CommitServiceImpl implements the interface
var _ primary.CommitService = (*CommitServiceImpl)(nil)
