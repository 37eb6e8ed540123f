package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"goa.design/clue/log"

	"github.com/example/bulkedit/internal/core/column"
	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/filter"
	coresession "github.com/example/bulkedit/internal/core/session"
	"github.com/example/bulkedit/internal/ports/primary"
	"github.com/example/bulkedit/internal/ports/secondary"
)

const entitySession = "session"

// SessionServiceImpl implements the SessionService interface.
type SessionServiceImpl struct {
	sessionAccess
	auditTrail
	now   func() time.Time
	newID func() string
}

// NewSessionService creates a new SessionService with injected dependencies.
func NewSessionService(
	sessionRepo secondary.SessionRepository,
	logWriter secondary.LogWriter,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessionAccess: sessionAccess{repo: sessionRepo},
		auditTrail:    auditTrail{logWriter: logWriter},
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// GetActive returns the open session for a scope, or nil if none.
func (s *SessionServiceImpl) GetActive(ctx context.Context, scope primary.Scope) (*primary.Session, error) {
	record, err := s.repo.GetOpen(ctx, toRepoScope(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	return recordToSession(record), nil
}

// Start creates a new session with the default pinned filters and columns.
func (s *SessionServiceImpl) Start(ctx context.Context, scope primary.Scope) (*primary.Session, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	open, err := s.repo.GetOpen(ctx, toRepoScope(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to check open session: %w", err)
	}
	guardCtx := coresession.StartContext{RecordType: scope.RecordType}
	if open != nil {
		guardCtx.OpenSessionID = open.ID
	}
	if result := coresession.CanStart(guardCtx); !result.Allowed {
		return nil, result.Error()
	}

	record := s.newSessionRecord(scope)
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.created(ctx, record.ID)
	log.Info(ctx,
		log.KV{K: "msg", V: "session started"},
		log.KV{K: "session_id", V: record.ID},
		log.KV{K: "record_type", V: scope.RecordType},
	)
	return recordToSession(record), nil
}

// StartOrResume returns the open session for the scope, starting one if none exists.
func (s *SessionServiceImpl) StartOrResume(ctx context.Context, scope primary.Scope) (*primary.Session, bool, error) {
	active, err := s.GetActive(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	if active != nil {
		return active, true, nil
	}

	started, err := s.Start(ctx, scope)
	if errors.Is(err, errs.ErrSessionConflict) {
		// Lost a race with a concurrent start; resume the winner.
		active, err = s.GetActive(ctx, scope)
		if err != nil {
			return nil, false, err
		}
		if active != nil {
			return active, true, nil
		}
		return nil, false, fmt.Errorf("%w: open session for %s vanished", errs.ErrSessionConflict, scope.RecordType)
	}
	if err != nil {
		return nil, false, err
	}
	return started, false, nil
}

// Restart archives any open session for the scope and starts a new one.
func (s *SessionServiceImpl) Restart(ctx context.Context, scope primary.Scope) (*primary.Session, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	record := s.newSessionRecord(scope)
	archivedID, err := s.repo.Restart(ctx, toRepoScope(scope), record, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to restart session: %w", err)
	}
	if archivedID != "" {
		s.updated(ctx, archivedID, "status", string(coresession.StatusActive), string(coresession.StatusArchived))
	}
	s.created(ctx, record.ID)
	log.Info(ctx,
		log.KV{K: "msg", V: "session restarted"},
		log.KV{K: "session_id", V: record.ID},
		log.KV{K: "archived_session_id", V: archivedID},
	)
	return recordToSession(record), nil
}

// GetSession retrieves a session owned by owner, in any state.
func (s *SessionServiceImpl) GetSession(ctx context.Context, owner primary.Owner, sessionID string) (*primary.Session, error) {
	record, err := s.loadOwned(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	return recordToSession(record), nil
}

// ListCommitted lists committed sessions, most recently committed first.
func (s *SessionServiceImpl) ListCommitted(ctx context.Context, owner primary.Owner, page primary.Page) ([]*primary.Session, error) {
	records, err := s.repo.ListCommitted(ctx, owner.UserID, owner.Domain, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list committed sessions: %w", err)
	}
	sessions := make([]*primary.Session, len(records))
	for i, r := range records {
		sessions[i] = recordToSession(r)
	}
	return sessions, nil
}

// AddFilter validates and appends a filter.
func (s *SessionServiceImpl) AddFilter(ctx context.Context, owner primary.Owner, sessionID string, req primary.AddFilterRequest) (*filter.Filter, error) {
	var added filter.Filter
	err := s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		dataType, err := filter.ParseDataType(req.DataType)
		if err != nil {
			return nil, errs.Invalid("data_type", "%s", err)
		}
		match, err := filter.ParseMatchType(req.Operator)
		if err != nil {
			return nil, errs.Invalid("operator", "%s", err)
		}

		pinned, regular := splitFilters(record.Filters)
		f := filter.Filter{
			ID:       s.newID(),
			Field:    strings.TrimSpace(req.Field),
			DataType: dataType,
			Match:    match,
			Value:    req.Value,
			Order:    len(regular),
		}
		if err := filter.ValidateAdd(record.Filters, f); err != nil {
			return nil, err
		}
		record.Filters = joinFilters(pinned, append(regular, f))
		added = f
		return &sessionEdit{field: "filter", newValue: f.Field}, nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// RemoveFilter removes a non-pinned filter by id or field.
func (s *SessionServiceImpl) RemoveFilter(ctx context.Context, owner primary.Owner, sessionID, fieldOrID string) error {
	return s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		if strings.TrimSpace(fieldOrID) == "" {
			return nil, errs.Invalid("filter", "a filter id or field is required")
		}
		pinned, regular := splitFilters(record.Filters)
		var removed string
		kept := regular[:0:0]
		for _, f := range regular {
			if f.ID == fieldOrID || f.Field == fieldOrID {
				removed = f.Field
				continue
			}
			kept = append(kept, f)
		}
		if removed == "" {
			for _, p := range pinned {
				if p.ID == fieldOrID || p.Field == fieldOrID {
					return nil, errs.Invalid("filter", "pinned filter %q cannot be removed, reset its value instead", p.Field)
				}
			}
			return nil, nil
		}
		record.Filters = joinFilters(pinned, kept)
		return &sessionEdit{field: "filter", oldValue: removed}, nil
	})
}

// ReorderFilters reorders the non-pinned filters.
func (s *SessionServiceImpl) ReorderFilters(ctx context.Context, owner primary.Owner, sessionID string, ids []string) error {
	return s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		pinned, regular := splitFilters(record.Filters)
		reordered, changed, err := coresession.Reorder(regular, func(f filter.Filter) string { return f.ID }, ids)
		if err != nil || !changed {
			return nil, err
		}
		record.Filters = joinFilters(pinned, reordered)
		return &sessionEdit{
			field:    "filter_order",
			oldValue: filterFields(regular),
			newValue: filterFields(reordered),
		}, nil
	})
}

// SetPinnedValue stores the value of a pinned filter, identified by field or id.
func (s *SessionServiceImpl) SetPinnedValue(ctx context.Context, owner primary.Owner, sessionID, field, value string) error {
	return s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		for i, f := range record.Filters {
			if !f.Pinned || (f.Field != field && f.ID != field) {
				continue
			}
			if f.Value == value {
				return nil, nil
			}
			old := f.Value
			f.Value = value
			if err := filter.Validate(f); err != nil {
				return nil, err
			}
			record.Filters[i] = f
			return &sessionEdit{field: "pinned:" + f.Field, oldValue: old, newValue: value}, nil
		}
		return nil, errs.Invalid("field", "no pinned filter on %q", field)
	})
}

// ResetPinnedValues clears the values of all pinned filters.
func (s *SessionServiceImpl) ResetPinnedValues(ctx context.Context, owner primary.Owner, sessionID string) error {
	return s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		var cleared []string
		for i, f := range record.Filters {
			if f.Pinned && f.Value != "" {
				cleared = append(cleared, f.Field+"="+f.Value)
				record.Filters[i].Value = ""
			}
		}
		if len(cleared) == 0 {
			return nil, nil
		}
		return &sessionEdit{field: "pinned", oldValue: strings.Join(cleared, ", ")}, nil
	})
}

// ResetFilters removes all non-pinned filters.
func (s *SessionServiceImpl) ResetFilters(ctx context.Context, owner primary.Owner, sessionID string) error {
	return s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		pinned, regular := splitFilters(record.Filters)
		if len(regular) == 0 {
			return nil, nil
		}
		record.Filters = joinFilters(pinned, nil)
		return &sessionEdit{field: "filters", oldValue: filterFields(regular)}, nil
	})
}

// Expression renders the effective filters as a search expression.
func (s *SessionServiceImpl) Expression(ctx context.Context, owner primary.Owner, sessionID string) (string, error) {
	record, err := s.loadOwned(ctx, owner, sessionID)
	if err != nil {
		return "", err
	}
	return filter.Expression(record.Filters)
}

// AddColumn validates and appends a column.
func (s *SessionServiceImpl) AddColumn(ctx context.Context, owner primary.Owner, sessionID string, req primary.AddColumnRequest) (*column.Column, error) {
	var added column.Column
	err := s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		dataType, err := filter.ParseDataType(req.DataType)
		if err != nil {
			return nil, errs.Invalid("data_type", "%s", err)
		}
		c := column.New(strings.TrimSpace(req.Field), req.Label, dataType)
		if err := column.ValidateAdd(record.Columns, c); err != nil {
			return nil, err
		}
		c.ID = s.newID()
		c.Order = len(record.Columns)
		record.Columns = append(record.Columns, c)
		added = c
		return &sessionEdit{field: "column", newValue: c.Field}, nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// RemoveColumn removes a column by id or field.
func (s *SessionServiceImpl) RemoveColumn(ctx context.Context, owner primary.Owner, sessionID, fieldOrID string) error {
	return s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		if strings.TrimSpace(fieldOrID) == "" {
			return nil, errs.Invalid("column", "a column id or field is required")
		}
		var removed string
		kept := record.Columns[:0:0]
		for _, c := range record.Columns {
			if c.ID == fieldOrID || c.Field == fieldOrID {
				removed = c.Field
				continue
			}
			c.Order = len(kept)
			kept = append(kept, c)
		}
		if removed == "" {
			return nil, nil
		}
		record.Columns = kept
		return &sessionEdit{field: "column", oldValue: removed}, nil
	})
}

// ReorderColumns reorders the columns.
func (s *SessionServiceImpl) ReorderColumns(ctx context.Context, owner primary.Owner, sessionID string, ids []string) error {
	return s.mutate(ctx, owner, sessionID, func(record *secondary.SessionRecord) (*sessionEdit, error) {
		reordered, changed, err := coresession.Reorder(record.Columns, func(c column.Column) string { return c.ID }, ids)
		if err != nil || !changed {
			return nil, err
		}
		old := columnFields(record.Columns)
		for i := range reordered {
			reordered[i].Order = i
		}
		record.Columns = reordered
		return &sessionEdit{field: "column_order", oldValue: old, newValue: columnFields(reordered)}, nil
	})
}

// Helper methods

// sessionEdit is the audit entry for one mutation.
type sessionEdit struct {
	field    string
	oldValue string
	newValue string
}

// mutate loads a mutable session and applies fn. When fn returns an edit the
// session is saved and the edit is audited; a nil edit means nothing changed.
// Input validation belongs inside fn so ownership and closure are checked first.
func (s *SessionServiceImpl) mutate(ctx context.Context, owner primary.Owner, sessionID string, fn func(*secondary.SessionRecord) (*sessionEdit, error)) error {
	record, err := s.loadMutable(ctx, owner, sessionID)
	if err != nil {
		return err
	}
	edit, err := fn(record)
	if err != nil || edit == nil {
		return err
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.updated(ctx, sessionID, edit.field, edit.oldValue, edit.newValue)
	return nil
}

func filterFields(filters []filter.Filter) string {
	fields := make([]string, len(filters))
	for i, f := range filters {
		fields[i] = f.Field
	}
	return strings.Join(fields, ",")
}

func columnFields(columns []column.Column) string {
	fields := make([]string, len(columns))
	for i, c := range columns {
		fields[i] = c.Field
	}
	return strings.Join(fields, ",")
}

func (s *SessionServiceImpl) newSessionRecord(scope primary.Scope) *secondary.SessionRecord {
	pinned := filter.DefaultPinned()
	for i := range pinned {
		pinned[i].ID = s.newID()
	}
	columns := column.Defaults()
	for i := range columns {
		columns[i].ID = s.newID()
	}
	return &secondary.SessionRecord{
		ID:           s.newID(),
		UserID:       scope.UserID,
		Domain:       scope.Domain,
		RecordType:   scope.RecordType,
		Status:       string(coresession.InitialStatus()),
		Filters:      pinned,
		Columns:      columns,
		NextSequence: 1,
		CreatedAt:    s.now(),
	}
}

func toRepoScope(scope primary.Scope) secondary.SessionScope {
	return secondary.SessionScope{
		UserID:     scope.UserID,
		Domain:     scope.Domain,
		RecordType: scope.RecordType,
	}
}

func validateScope(scope primary.Scope) error {
	switch {
	case strings.TrimSpace(scope.UserID) == "":
		return errs.Invalid("user", "is required")
	case strings.TrimSpace(scope.Domain) == "":
		return errs.Invalid("domain", "is required")
	case strings.TrimSpace(scope.RecordType) == "":
		return errs.Invalid("record_type", "is required")
	}
	return nil
}

// Ensure SessionServiceImpl implements the interface
var _ primary.SessionService = (*SessionServiceImpl)(nil)
