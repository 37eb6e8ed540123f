package app

import (
	"context"
	"errors"
	"fmt"

	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/core/errs"
	coresession "github.com/example/bulkedit/internal/core/session"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// sessionAccess loads sessions on behalf of a caller and applies the
// ownership and mutability guards shared by every service.
type sessionAccess struct {
	repo secondary.SessionRepository
}

// loadOwned fetches a session and checks it belongs to owner.
func (a sessionAccess) loadOwned(ctx context.Context, owner primary.Owner, sessionID string) (*secondary.SessionRecord, error) {
	record, err := a.repo.GetByID(ctx, sessionID)
	if err != nil && !errors.Is(err, errs.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	guardCtx := coresession.AccessContext{
		SessionID: sessionID,
		Exists:    record != nil,
		UserID:    owner.UserID,
		Domain:    owner.Domain,
	}
	if record != nil {
		guardCtx.SessionUserID = record.UserID
		guardCtx.SessionDomain = record.Domain
	}
	if result := coresession.CanAccess(guardCtx); !result.Allowed {
		return nil, result.Error()
	}
	return record, nil
}

// loadMutable fetches an owned session and checks it is still editable.
func (a sessionAccess) loadMutable(ctx context.Context, owner primary.Owner, sessionID string) (*secondary.SessionRecord, error) {
	record, err := a.loadOwned(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ensureMutable(record); err != nil {
		return nil, err
	}
	return record, nil
}

func ensureMutable(record *secondary.SessionRecord) error {
	result := coresession.CanMutate(coresession.MutateContext{
		SessionID: record.ID,
		Status:    coresession.Status(record.Status),
		Committed: record.CommittedAt != nil,
	})
	return result.Error()
}

// auditTrail records session events through the log writer. Audit failures
// are logged and never fail the operation.
type auditTrail struct {
	logWriter secondary.LogWriter
}

func (a auditTrail) created(ctx context.Context, sessionID string) {
	if a.logWriter == nil {
		return
	}
	a.warn(ctx, a.logWriter.LogCreate(ctx, entitySession, sessionID))
}

func (a auditTrail) updated(ctx context.Context, sessionID, field, oldValue, newValue string) {
	if a.logWriter == nil {
		return
	}
	a.warn(ctx, a.logWriter.LogUpdate(ctx, entitySession, sessionID, field, oldValue, newValue))
}

func (a auditTrail) warn(ctx context.Context, err error) {
	if err != nil {
		log.Warn(ctx, log.KV{K: "msg", V: "failed to write audit entry"}, log.KV{K: "err", V: err.Error()})
	}
}
