package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"goa.design/clue/log"
	"golang.org/x/sync/errgroup"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/record"
	coresession "github.com/example/bulkedit/internal/core/session"
	"github.com/example/bulkedit/internal/ports/secondary"
	"github.com/example/bulkedit/internal/retry"
)

// pipelineMetrics are the counters a commit run reports through OTEL.
type pipelineMetrics struct {
	written metric.Int64Counter
	failed  metric.Int64Counter
	batches metric.Int64Counter
}

func newPipelineMetrics() pipelineMetrics {
	meter := otel.Meter("github.com/example/bulkedit/internal/app")
	m := pipelineMetrics{}
	var err error
	if m.written, err = meter.Int64Counter("bulkedit.commit.records_written",
		metric.WithDescription("Records updated by commit runs")); err != nil {
		m.written = noop.Int64Counter{}
	}
	if m.failed, err = meter.Int64Counter("bulkedit.commit.records_failed",
		metric.WithDescription("Records that could not be written after retries")); err != nil {
		m.failed = noop.Int64Counter{}
	}
	if m.batches, err = meter.Int64Counter("bulkedit.commit.batches",
		metric.WithDescription("Batches whose progress was saved")); err != nil {
		m.batches = noop.Int64Counter{}
	}
	return m
}

// run carries the state of one commit run between batches.
type run struct {
	session   *secondary.SessionRecord
	processed int
	percent   int
}

// writeResult is the outcome of processing one record.
type writeResult struct {
	sideEffectID string
	failure      *secondary.FailureRecord
}

// Run executes the commit run of a session: it replays the change log on
// every selected record in batches, saving progress after each batch.
// Terminal sessions are a no-op. A canceled context leaves the session
// committing so the run can be resumed.
func (s *CommitServiceImpl) Run(ctx context.Context, sessionID string) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	status := coresession.Status(sess.Status)
	if status.IsTerminal() {
		log.Debug(ctx, log.KV{K: "msg", V: "session already finished"}, log.KV{K: "session_id", V: sessionID})
		return nil
	}
	if status != coresession.StatusCommitting {
		return fmt.Errorf("%w: session %s is %s, not committing", errs.ErrSessionClosed, sessionID, status)
	}

	ctx = log.With(ctx, log.KV{K: "session_id", V: sessionID}, log.KV{K: "user_id", V: sess.UserID})
	r := &run{session: sess, processed: sess.RecordsProcessed, percent: sess.PercentComplete}
	log.Info(ctx, log.KV{K: "msg", V: "commit run started"}, log.KV{K: "records_processed", V: r.processed})

	err = s.process(ctx, r)
	switch {
	case err == nil:
		return s.finishCompleted(ctx, r)
	case errors.Is(err, secondary.ErrProgressConflict):
		log.Info(ctx, log.KV{K: "msg", V: "commit run owned by another worker, stopping"})
		return nil
	case ctx.Err() != nil:
		log.Info(ctx, log.KV{K: "msg", V: "commit run interrupted"}, log.KV{K: "records_processed", V: r.processed})
		return ctx.Err()
	default:
		return s.finishFailed(ctx, r, err)
	}
}

func (s *CommitServiceImpl) process(ctx context.Context, r *run) error {
	query := selectionQuery(r.session)

	if r.processed == 0 {
		total, err := s.selector.Count(ctx, query)
		if err != nil {
			return &errs.PipelineFatalError{Stage: "count", Err: err}
		}
		if err := s.repo.SetTotalRecords(ctx, r.session.ID, total); err != nil {
			return &errs.PipelineFatalError{Stage: "count", Err: err}
		}
		r.session.TotalRecords = total
	}

	query.AfterID = r.session.LastRecordID
	batch := make([]record.Ref, 0, s.opts.BatchSize)
	for ref, err := range s.selector.Select(ctx, query) {
		if err != nil {
			return &errs.PipelineFatalError{Stage: "select", Err: err}
		}
		batch = append(batch, ref)
		if len(batch) < s.opts.BatchSize {
			continue
		}
		if err := s.runBatch(ctx, r, batch); err != nil {
			return err
		}
		batch = batch[:0]
	}
	if len(batch) > 0 {
		return s.runBatch(ctx, r, batch)
	}
	return nil
}

// runBatch writes the records of one batch in parallel and saves the
// batch's progress in one repository call.
func (s *CommitServiceImpl) runBatch(ctx context.Context, r *run, batch []record.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	results := make([]writeResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, ref := range batch {
		g.Go(func() error {
			res, err := s.writeRecord(gctx, r.session, ref)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	progress := secondary.BatchProgress{
		ExpectedProcessed: r.processed,
		Processed:         len(batch),
		LastRecordID:      batch[len(batch)-1].ID,
		PercentComplete:   coresession.Percent(r.processed+len(batch), r.session.TotalRecords),
	}
	for _, res := range results {
		if res.sideEffectID != "" {
			progress.Changed++
			progress.SideEffectIDs = append(progress.SideEffectIDs, res.sideEffectID)
		}
		if res.failure != nil {
			progress.Failures = append(progress.Failures, *res.failure)
		}
	}

	if err := s.repo.SaveProgress(ctx, r.session.ID, progress); err != nil {
		if errors.Is(err, secondary.ErrProgressConflict) {
			return err
		}
		return &errs.PipelineFatalError{Stage: "progress", Err: err}
	}
	r.processed += len(batch)
	r.percent = max(r.percent, progress.PercentComplete)

	attrs := metric.WithAttributes(attribute.String("record_type", r.session.RecordType))
	s.metrics.written.Add(ctx, int64(progress.Changed), attrs)
	s.metrics.failed.Add(ctx, int64(len(progress.Failures)), attrs)
	s.metrics.batches.Add(ctx, 1, attrs)
	log.Debug(ctx,
		log.KV{K: "msg", V: "batch saved"},
		log.KV{K: "records_processed", V: r.processed},
		log.KV{K: "changed", V: progress.Changed},
		log.KV{K: "failures", V: len(progress.Failures)},
		log.KV{K: "percent", V: progress.PercentComplete},
	)
	return nil
}

// writeRecord replays the change log on one record and writes the result.
// Only fatal errors are returned; write failures become a FailureRecord.
func (s *CommitServiceImpl) writeRecord(ctx context.Context, sess *secondary.SessionRecord, ref record.Ref) (writeResult, error) {
	updates := change.Replay(sess.Changes, ref.ID, ref.Properties)
	if len(updates) == 0 {
		return writeResult{}, nil
	}

	var sideEffectID string
	attempts, err := retry.Do(ctx, s.opts.Retry, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		id, err := s.store.Write(ctx, secondary.RecordWrite{
			SessionID: sess.ID,
			Domain:    sess.Domain,
			RecordID:  ref.ID,
			Updates:   updates,
		})
		if err != nil {
			return err
		}
		sideEffectID = id
		return nil
	})
	switch {
	case err == nil:
		return writeResult{sideEffectID: sideEffectID}, nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return writeResult{}, err
	case errors.Is(err, errs.ErrStoreUnavailable):
		return writeResult{}, &errs.PipelineFatalError{Stage: "write", Err: err}
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		err = exhausted.LastError
	}
	log.Warn(ctx,
		log.KV{K: "msg", V: "record write failed"},
		log.KV{K: "record_id", V: ref.ID},
		log.KV{K: "attempts", V: attempts},
		log.KV{K: "err", V: err.Error()},
	)
	return writeResult{failure: &secondary.FailureRecord{
		RecordID: ref.ID,
		Attempts: attempts,
		Error:    err.Error(),
	}}, nil
}

func (s *CommitServiceImpl) finishCompleted(ctx context.Context, r *run) error {
	transition, err := coresession.ApplyTransition(coresession.StatusCommitting, coresession.StatusCompleted, s.now())
	if err != nil {
		return err
	}
	if err := s.repo.Finish(ctx, r.session.ID, secondary.FinishRecord{
		Status:          string(transition.NewStatus),
		CompletedAt:     transition.CompletedAt,
		PercentComplete: 100,
	}); err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	s.updated(ctx, r.session.ID, "status", string(coresession.StatusCommitting), string(transition.NewStatus))
	log.Info(ctx,
		log.KV{K: "msg", V: "commit run completed"},
		log.KV{K: "records_processed", V: r.processed},
		log.KV{K: "total_records", V: r.session.TotalRecords},
	)
	return nil
}

func (s *CommitServiceImpl) finishFailed(ctx context.Context, r *run, cause error) error {
	log.Error(ctx, cause, log.KV{K: "msg", V: "commit run failed"}, log.KV{K: "records_processed", V: r.processed})
	if err := s.repo.Finish(ctx, r.session.ID, secondary.FinishRecord{
		Status:          string(coresession.StatusFailed),
		PercentComplete: r.percent,
		ErrorDetail:     cause.Error(),
	}); err != nil {
		return fmt.Errorf("failed to mark session failed: %w (run error: %v)", err, cause)
	}
	s.updated(ctx, r.session.ID, "status", string(coresession.StatusCommitting), string(coresession.StatusFailed))
	return cause
}
