// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/example/bulkedit/internal/core/change"
	"github.com/example/bulkedit/internal/core/column"
	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/filter"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// SessionRepository implements secondary.SessionRepository with SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `s.id, s.user_id, s.domain, s.record_type, s.status, s.next_sequence, s.task_id,
	s.num_changed_records, s.records_processed, s.last_record_id, s.total_records, s.percent_complete, s.error_detail,
	s.created_at, s.committed_at, s.completed_at, s.archived_at,
	(SELECT COUNT(*) FROM session_failures f WHERE f.session_id = s.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*secondary.SessionRecord, error) {
	var (
		taskID       sql.NullString
		lastRecordID sql.NullString
		errorDetail  sql.NullString
		committedAt  sql.NullTime
		completedAt  sql.NullTime
		archivedAt   sql.NullTime
	)

	record := &secondary.SessionRecord{}
	err := row.Scan(&record.ID, &record.UserID, &record.Domain, &record.RecordType, &record.Status,
		&record.NextSequence, &taskID, &record.NumChangedRecords, &record.RecordsProcessed,
		&lastRecordID, &record.TotalRecords, &record.PercentComplete, &errorDetail, &record.CreatedAt,
		&committedAt, &completedAt, &archivedAt, &record.FailureCount)
	if err != nil {
		return nil, err
	}

	record.TaskID = taskID.String
	record.LastRecordID = lastRecordID.String
	record.ErrorDetail = errorDetail.String
	record.CommittedAt = timePtr(committedAt)
	record.CompletedAt = timePtr(completedAt)
	record.ArchivedAt = timePtr(archivedAt)
	return record, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Create persists a new open session with its configuration.
func (r *SessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertSession(ctx, tx, session)
	})
}

func insertSession(ctx context.Context, tx *sql.Tx, session *secondary.SessionRecord) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, domain, record_type, status, next_sequence, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		session.ID, session.UserID, session.Domain, session.RecordType, session.Status, session.NextSequence, session.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: an open %s session already exists for %s", errs.ErrSessionConflict, session.RecordType, session.UserID)
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return writeConfig(ctx, tx, session)
}

// writeConfig replaces the filters, columns and change log of a session.
func writeConfig(ctx context.Context, tx *sql.Tx, session *secondary.SessionRecord) error {
	for _, table := range []string{"session_filters", "session_columns", "session_changes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", session.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, f := range session.Filters {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO session_filters (id, session_id, field, data_type, match_type, value, pinned, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			f.ID, session.ID, f.Field, string(f.DataType), string(f.Match), f.Value, f.Pinned, f.Order,
		)
		if err != nil {
			return fmt.Errorf("failed to save filter %s: %w", f.Field, err)
		}
	}

	for _, c := range session.Columns {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO session_columns (id, session_id, field, label, data_type, is_system, position) VALUES (?, ?, ?, ?, ?, ?, ?)",
			c.ID, session.ID, c.Field, c.Label, string(c.DataType), c.IsSystem, c.Order,
		)
		if err != nil {
			return fmt.Errorf("failed to save column %s: %w", c.Field, err)
		}
	}

	for _, c := range session.Changes {
		payload, err := json.Marshal(c.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode change payload: %w", err)
		}
		ids := c.ExplicitIDs
		if ids == nil {
			ids = []string{}
		}
		explicitIDs, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to encode explicit ids: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO session_changes (id, session_id, sequence, action, target_field, payload, scope, explicit_ids, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			c.ID, session.ID, c.Sequence, string(c.Action), c.TargetField, string(payload), string(c.Scope), string(explicitIDs), c.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save change %d: %w", c.Sequence, err)
		}
	}

	return nil
}

// GetByID retrieves a session with all of its child rows.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	record, err := scanSession(r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions s WHERE s.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := r.loadChildren(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *SessionRepository) loadChildren(ctx context.Context, record *secondary.SessionRecord) error {
	if err := r.loadFilters(ctx, record); err != nil {
		return err
	}
	if err := r.loadColumns(ctx, record); err != nil {
		return err
	}
	if err := r.loadChanges(ctx, record); err != nil {
		return err
	}
	if err := r.loadSideEffects(ctx, record); err != nil {
		return err
	}
	return r.loadFailures(ctx, record)
}

func (r *SessionRepository) loadFilters(ctx context.Context, record *secondary.SessionRecord) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, field, data_type, match_type, value, pinned, position FROM session_filters WHERE session_id = ? ORDER BY pinned DESC, position",
		record.ID)
	if err != nil {
		return fmt.Errorf("failed to load filters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f filter.Filter
		var dataType, match string
		if err := rows.Scan(&f.ID, &f.Field, &dataType, &match, &f.Value, &f.Pinned, &f.Order); err != nil {
			return fmt.Errorf("failed to scan filter: %w", err)
		}
		f.DataType = filter.DataType(dataType)
		f.Match = filter.MatchType(match)
		record.Filters = append(record.Filters, f)
	}
	return rows.Err()
}

func (r *SessionRepository) loadColumns(ctx context.Context, record *secondary.SessionRecord) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, field, label, data_type, is_system, position FROM session_columns WHERE session_id = ? ORDER BY position",
		record.ID)
	if err != nil {
		return fmt.Errorf("failed to load columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c column.Column
		var dataType string
		if err := rows.Scan(&c.ID, &c.Field, &c.Label, &dataType, &c.IsSystem, &c.Order); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}
		c.DataType = filter.DataType(dataType)
		record.Columns = append(record.Columns, c)
	}
	return rows.Err()
}

func (r *SessionRepository) loadChanges(ctx context.Context, record *secondary.SessionRecord) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, sequence, action, target_field, payload, scope, explicit_ids, created_at FROM session_changes WHERE session_id = ? ORDER BY sequence",
		record.ID)
	if err != nil {
		return fmt.Errorf("failed to load changes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                                   change.Change
			action, scope, payload, explicitIDs string
		)
		if err := rows.Scan(&c.ID, &c.Sequence, &action, &c.TargetField, &payload, &scope, &explicitIDs, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan change: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &c.Payload); err != nil {
			return fmt.Errorf("failed to decode change payload: %w", err)
		}
		if err := json.Unmarshal([]byte(explicitIDs), &c.ExplicitIDs); err != nil {
			return fmt.Errorf("failed to decode explicit ids: %w", err)
		}
		if len(c.ExplicitIDs) == 0 {
			c.ExplicitIDs = nil
		}
		c.Action = change.Action(action)
		c.Scope = change.Scope(scope)
		record.Changes = append(record.Changes, c)
	}
	return rows.Err()
}

func (r *SessionRepository) loadSideEffects(ctx context.Context, record *secondary.SessionRecord) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT side_effect_id FROM session_side_effects WHERE session_id = ? ORDER BY id", record.ID)
	if err != nil {
		return fmt.Errorf("failed to load side effects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan side effect: %w", err)
		}
		record.SideEffectIDs = append(record.SideEffectIDs, id)
	}
	return rows.Err()
}

func (r *SessionRepository) loadFailures(ctx context.Context, record *secondary.SessionRecord) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT record_id, attempts, error FROM session_failures WHERE session_id = ? ORDER BY created_at, record_id", record.ID)
	if err != nil {
		return fmt.Errorf("failed to load failures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f secondary.FailureRecord
		if err := rows.Scan(&f.RecordID, &f.Attempts, &f.Error); err != nil {
			return fmt.Errorf("failed to scan failure: %w", err)
		}
		record.Failures = append(record.Failures, f)
	}
	return rows.Err()
}

// GetOpen retrieves the open session for a scope. Returns nil, nil if none.
func (r *SessionRepository) GetOpen(ctx context.Context, scope secondary.SessionScope) (*secondary.SessionRecord, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM sessions WHERE user_id = ? AND domain = ? AND record_type = ? AND committed_at IS NULL AND archived_at IS NULL",
		scope.UserID, scope.Domain, scope.RecordType,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	return r.GetByID(ctx, id)
}

// sessionStateError explains why a conditional update matched no row.
func sessionStateError(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id string) error {
	var status string
	err := q.QueryRowContext(ctx, "SELECT status FROM sessions WHERE id = ?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", errs.ErrSessionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get session status: %w", err)
	}
	return fmt.Errorf("%w: session %s is %s", errs.ErrSessionClosed, id, status)
}

// Save replaces the configuration and change log of an open session.
func (r *SessionRepository) Save(ctx context.Context, session *secondary.SessionRecord) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE sessions SET next_sequence = ? WHERE id = ? AND status = 'active' AND committed_at IS NULL AND archived_at IS NULL",
			session.NextSequence, session.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return sessionStateError(ctx, tx, session.ID)
		}
		return writeConfig(ctx, tx, session)
	})
}

// Restart archives the open session for the scope and creates next.
func (r *SessionRepository) Restart(ctx context.Context, scope secondary.SessionScope, next *secondary.SessionRecord, archivedAt time.Time) (string, error) {
	var archivedID string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM sessions WHERE user_id = ? AND domain = ? AND record_type = ? AND committed_at IS NULL AND archived_at IS NULL",
			scope.UserID, scope.Domain, scope.RecordType,
		).Scan(&archivedID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to get open session: %w", err)
		}

		if archivedID != "" {
			if _, err := tx.ExecContext(ctx,
				"UPDATE sessions SET status = 'archived', archived_at = ? WHERE id = ?",
				archivedAt.UTC(), archivedID,
			); err != nil {
				return fmt.Errorf("failed to archive session: %w", err)
			}
		}

		return insertSession(ctx, tx, next)
	})
	if err != nil {
		return "", err
	}
	return archivedID, nil
}

// MarkCommitted moves an active session to committing.
func (r *SessionRepository) MarkCommitted(ctx context.Context, id, taskID string, committedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = 'committing', committed_at = ?, task_id = ?,
			records_processed = 0, last_record_id = NULL, num_changed_records = 0, percent_complete = 0
		WHERE id = ? AND status = 'active' AND committed_at IS NULL AND archived_at IS NULL`,
		committedAt.UTC(), nullString(taskID), id,
	)
	if err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sessionStateError(ctx, r.db, id)
	}
	return nil
}

// SetTotalRecords records the size of the selection of a commit run.
func (r *SessionRepository) SetTotalRecords(ctx context.Context, id string, total int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET total_records = ? WHERE id = ? AND status = 'committing'", total, id)
	if err != nil {
		return fmt.Errorf("failed to set total records: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sessionStateError(ctx, r.db, id)
	}
	return nil
}

// SaveProgress applies one batch of progress in a single transaction.
func (r *SessionRepository) SaveProgress(ctx context.Context, id string, progress secondary.BatchProgress) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE sessions SET
				records_processed = records_processed + ?,
				last_record_id = ?,
				num_changed_records = num_changed_records + ?,
				percent_complete = MAX(percent_complete, ?)
			WHERE id = ? AND status = 'committing' AND records_processed = ?`,
			progress.Processed, nullString(progress.LastRecordID), progress.Changed, progress.PercentComplete, id, progress.ExpectedProcessed,
		)
		if err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return fmt.Errorf("%w: session %s is no longer at %d processed records",
				secondary.ErrProgressConflict, id, progress.ExpectedProcessed)
		}

		for _, sideEffectID := range progress.SideEffectIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO session_side_effects (session_id, side_effect_id) VALUES (?, ?)",
				id, sideEffectID,
			); err != nil {
				return fmt.Errorf("failed to save side effect: %w", err)
			}
		}

		for _, f := range progress.Failures {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO session_failures (session_id, record_id, attempts, error, created_at) VALUES (?, ?, ?, ?, ?)",
				id, f.RecordID, f.Attempts, f.Error, time.Now().UTC(),
			); err != nil {
				return fmt.Errorf("failed to save failure: %w", err)
			}
		}
		return nil
	})
}

// Finish moves a committing session to a terminal status.
func (r *SessionRepository) Finish(ctx context.Context, id string, finish secondary.FinishRecord) error {
	var completedAt sql.NullTime
	if finish.CompletedAt != nil {
		completedAt = sql.NullTime{Time: finish.CompletedAt.UTC(), Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET status = ?, completed_at = ?, percent_complete = ?, error_detail = ? WHERE id = ? AND status = 'committing'",
		finish.Status, completedAt, finish.PercentComplete, nullString(finish.ErrorDetail), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return sessionStateError(ctx, r.db, id)
	}
	return nil
}

// ListCommitted lists committed sessions, most recently committed first.
func (r *SessionRepository) ListCommitted(ctx context.Context, userID, domain string, limit, offset int) ([]*secondary.SessionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.list(ctx,
		"SELECT "+sessionColumns+" FROM sessions s WHERE s.user_id = ? AND s.domain = ? AND s.committed_at IS NOT NULL ORDER BY s.committed_at DESC, s.id DESC LIMIT ? OFFSET ?",
		userID, domain, limit, max(offset, 0),
	)
}

// ListByStatus lists sessions in a status, oldest first.
func (r *SessionRepository) ListByStatus(ctx context.Context, status string) ([]*secondary.SessionRecord, error) {
	return r.list(ctx,
		"SELECT "+sessionColumns+" FROM sessions s WHERE s.status = ? ORDER BY s.created_at, s.id", status)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]*secondary.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*secondary.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Ensure SessionRepository implements the interface
var _ secondary.SessionRepository = (*SessionRepository)(nil)
