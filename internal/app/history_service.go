package app

import (
	"context"
	"fmt"
	"io"

	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// HistoryServiceImpl implements the HistoryService interface.
type HistoryServiceImpl struct {
	sessionAccess
	logRepo secondary.AuditLogRepository
}

// NewHistoryService creates a new HistoryService with injected dependencies.
func NewHistoryService(
	sessionRepo secondary.SessionRepository,
	logRepo secondary.AuditLogRepository,
) *HistoryServiceImpl {
	return &HistoryServiceImpl{
		sessionAccess: sessionAccess{repo: sessionRepo},
		logRepo:       logRepo,
	}
}

// ListCommitted returns summaries of committed sessions, newest first.
func (s *HistoryServiceImpl) ListCommitted(ctx context.Context, owner primary.Owner, page primary.Page) ([]*primary.SessionSummary, error) {
	records, err := s.repo.ListCommitted(ctx, owner.UserID, owner.Domain, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list committed sessions: %w", err)
	}

	summaries := make([]*primary.SessionSummary, len(records))
	for i, r := range records {
		summaries[i] = &primary.SessionSummary{
			SessionID:         r.ID,
			RecordType:        r.RecordType,
			Status:            r.Status,
			CommittedAt:       r.CommittedAt,
			CompletedAt:       r.CompletedAt,
			NumChangedRecords: r.NumChangedRecords,
			PercentComplete:   r.PercentComplete,
			FailureCount:      r.FailureCount,
		}
	}
	return summaries, nil
}

// DownloadSideEffects writes the side-effect ids of a session to w, one per line.
func (s *HistoryServiceImpl) DownloadSideEffects(ctx context.Context, owner primary.Owner, sessionID string, w io.Writer) (int, error) {
	record, err := s.loadOwned(ctx, owner, sessionID)
	if err != nil {
		return 0, err
	}
	for i, id := range record.SideEffectIDs {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return i, fmt.Errorf("failed to write side effect ids: %w", err)
		}
	}
	return len(record.SideEffectIDs), nil
}

// Events returns the audit trail of a session, oldest first.
func (s *HistoryServiceImpl) Events(ctx context.Context, owner primary.Owner, sessionID string) ([]*primary.SessionEvent, error) {
	if _, err := s.loadOwned(ctx, owner, sessionID); err != nil {
		return nil, err
	}
	records, err := s.logRepo.ListByEntity(ctx, entitySession, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}

	events := make([]*primary.SessionEvent, len(records))
	for i, r := range records {
		events[i] = &primary.SessionEvent{
			ActorID:   r.ActorID,
			Action:    r.Action,
			FieldName: r.FieldName,
			OldValue:  r.OldValue,
			NewValue:  r.NewValue,
			CreatedAt: r.CreatedAt,
		}
	}
	return events, nil
}

// Ensure HistoryServiceImpl implements the interface
var _ primary.HistoryService = (*HistoryServiceImpl)(nil)
