package app

import (
	"context"
	"fmt"
	"strings"

	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/record"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// RecordServiceImpl implements the RecordService interface.
type RecordServiceImpl struct {
	sessionAccess
	selector secondary.RecordSelector
	store    secondary.RecordStore
}

// NewRecordService creates a new RecordService with injected dependencies.
func NewRecordService(
	sessionRepo secondary.SessionRepository,
	selector secondary.RecordSelector,
	store secondary.RecordStore,
) *RecordServiceImpl {
	return &RecordServiceImpl{
		sessionAccess: sessionAccess{repo: sessionRepo},
		selector:      selector,
		store:         store,
	}
}

// Import creates or replaces records, returning how many were stored.
func (s *RecordServiceImpl) Import(ctx context.Context, req primary.ImportRecordsRequest) (int, error) {
	if strings.TrimSpace(req.Domain) == "" {
		return 0, errs.Invalid("domain", "is required")
	}
	if strings.TrimSpace(req.RecordType) == "" {
		return 0, errs.Invalid("record_type", "is required")
	}
	for i, ref := range req.Records {
		if strings.TrimSpace(ref.ID) == "" {
			return 0, errs.Invalid("records", "record %d has no id", i)
		}
	}

	for i, ref := range req.Records {
		if err := s.store.Put(ctx, req.Domain, req.RecordType, ref); err != nil {
			return i, fmt.Errorf("failed to import records: %w", err)
		}
	}
	log.Info(ctx,
		log.KV{K: "msg", V: "records imported"},
		log.KV{K: "record_type", V: req.RecordType},
		log.KV{K: "count", V: len(req.Records)},
	)
	return len(req.Records), nil
}

// List returns records of a type, narrowed by a session's selection when
// req.SessionID is set.
func (s *RecordServiceImpl) List(ctx context.Context, req primary.ListRecordsRequest) ([]record.Ref, error) {
	query := secondary.RecordQuery{
		Domain:     req.Owner.Domain,
		RecordType: req.RecordType,
	}
	if req.SessionID != "" {
		sess, err := s.loadOwned(ctx, req.Owner, req.SessionID)
		if err != nil {
			return nil, err
		}
		query = selectionQuery(sess)
	}

	var refs []record.Ref
	for ref, err := range s.selector.Select(ctx, query) {
		if err != nil {
			return nil, fmt.Errorf("failed to list records: %w", err)
		}
		refs = append(refs, ref)
		if req.Limit > 0 && len(refs) >= req.Limit {
			break
		}
	}
	return refs, nil
}

// Ensure RecordServiceImpl implements the interface
var _ primary.RecordService = (*RecordServiceImpl)(nil)
