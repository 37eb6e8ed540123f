package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/record"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// ChangeLogServiceImpl implements the ChangeLogService interface.
type ChangeLogServiceImpl struct {
	sessionAccess
	auditTrail
	selector secondary.RecordSelector
	now      func() time.Time
	newID    func() string
}

// NewChangeLogService creates a new ChangeLogService with injected dependencies.
func NewChangeLogService(
	sessionRepo secondary.SessionRepository,
	selector secondary.RecordSelector,
	logWriter secondary.LogWriter,
) *ChangeLogServiceImpl {
	return &ChangeLogServiceImpl{
		sessionAccess: sessionAccess{repo: sessionRepo},
		auditTrail:    auditTrail{logWriter: logWriter},
		selector:      selector,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// ApplyChange validates and appends a change, returning an estimate of the
// records it affects.
func (s *ChangeLogServiceImpl) ApplyChange(ctx context.Context, owner primary.Owner, sessionID string, req primary.ApplyChangeRequest) (*primary.ChangePreview, error) {
	record, err := s.loadMutable(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	action, err := change.ParseAction(req.Operation)
	if err != nil {
		return nil, err
	}

	c := change.Change{
		ID:          s.newID(),
		Action:      action,
		TargetField: strings.TrimSpace(req.TargetField),
		Payload:     req.Payload,
		Scope:       change.ScopeAllSelected,
		CreatedAt:   s.now(),
	}
	if len(req.ExplicitIDs) > 0 {
		c.Scope = change.ScopeExplicitIDs
		c.ExplicitIDs = compactIDs(req.ExplicitIDs)
	}
	if err := change.Validate(c); err != nil {
		return nil, err
	}

	estimate := len(c.ExplicitIDs)
	if c.Scope == change.ScopeAllSelected {
		estimate, err = s.selector.Count(ctx, selectionQuery(record))
		if err != nil {
			return nil, fmt.Errorf("failed to estimate affected records: %w", err)
		}
	}

	if record.NextSequence < 1 {
		record.NextSequence = 1
	}
	record.Changes = change.Append(record.Changes, c, record.NextSequence)
	c.Sequence = record.NextSequence
	record.NextSequence++

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save change log: %w", err)
	}
	s.updated(ctx, sessionID, "change", "", fmt.Sprintf("%d %s %s", c.Sequence, c.Action, c.TargetField))
	log.Debug(ctx,
		log.KV{K: "msg", V: "change staged"},
		log.KV{K: "session_id", V: sessionID},
		log.KV{K: "sequence", V: c.Sequence},
		log.KV{K: "action", V: string(c.Action)},
		log.KV{K: "estimated_records", V: estimate},
	)
	return &primary.ChangePreview{Change: c, EstimatedRecords: estimate}, nil
}

// UndoLast removes and returns the most recent change.
func (s *ChangeLogServiceImpl) UndoLast(ctx context.Context, owner primary.Owner, sessionID string) (*change.Change, error) {
	record, err := s.loadMutable(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	removed, rest, err := change.UndoLast(record.Changes)
	if err != nil {
		return nil, err
	}
	record.Changes = rest
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save change log: %w", err)
	}
	s.updated(ctx, sessionID, "change", fmt.Sprintf("%d %s %s", removed.Sequence, removed.Action, removed.TargetField), "")
	return &removed, nil
}

// Clear removes every staged change.
func (s *ChangeLogServiceImpl) Clear(ctx context.Context, owner primary.Owner, sessionID string) error {
	record, err := s.loadMutable(ctx, owner, sessionID)
	if err != nil {
		return err
	}
	if len(record.Changes) == 0 {
		return nil
	}
	cleared := len(record.Changes)
	record.Changes = nil
	if err := s.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save change log: %w", err)
	}
	s.updated(ctx, sessionID, "changes", fmt.Sprintf("%d", cleared), "0")
	return nil
}

// List returns the staged changes in sequence order.
func (s *ChangeLogServiceImpl) List(ctx context.Context, owner primary.Owner, sessionID string) ([]change.Change, error) {
	record, err := s.loadOwned(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	changes := slices.Clone(record.Changes)
	slices.SortFunc(changes, func(a, b change.Change) int { return a.Sequence - b.Sequence })
	return changes, nil
}

// PreviewRecord replays the change log against one record without writing it.
func (s *ChangeLogServiceImpl) PreviewRecord(ctx context.Context, owner primary.Owner, sessionID, recordID string) (*primary.RecordPreview, error) {
	sess, err := s.loadOwned(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(recordID) == "" {
		return nil, errs.Invalid("record_id", "is required")
	}

	query := secondary.RecordQuery{
		Domain:     sess.Domain,
		RecordType: sess.RecordType,
		IDs:        []string{recordID},
	}
	var current record.Properties
	found := false
	for ref, err := range s.selector.Select(ctx, query) {
		if err != nil {
			return nil, fmt.Errorf("failed to load record: %w", err)
		}
		current = ref.Properties
		found = true
		break
	}
	if !found {
		return nil, errs.Invalid("record_id", "record %q not found in %s", recordID, sess.RecordType)
	}

	return &primary.RecordPreview{
		RecordID: recordID,
		Current:  current,
		Updates:  change.Replay(sess.Changes, recordID, current),
	}, nil
}

// Helper methods

// compactIDs trims ids and drops blanks and duplicates, keeping first-seen order.
func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Ensure ChangeLogServiceImpl implements the interface
var _ primary.ChangeLogService = (*ChangeLogServiceImpl)(nil)
