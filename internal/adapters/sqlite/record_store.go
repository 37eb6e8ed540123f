package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/bulkedit/internal/core/errs"
	"github.com/example/bulkedit/internal/core/filter"
	"github.com/example/bulkedit/internal/core/record"
	"github.com/example/bulkedit/internal/ports/secondary"
)

const defaultPageSize = 500

// RecordStore implements secondary.RecordStore and secondary.RecordSelector
// over the records table. Filters are evaluated in process.
type RecordStore struct {
	db       *sql.DB
	pageSize int
}

// NewRecordStore creates a new SQLite record store.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db, pageSize: defaultPageSize}
}

// WithPageSize sets how many rows each page query reads.
func (s *RecordStore) WithPageSize(n int) *RecordStore {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// Count returns the number of records Select would yield.
func (s *RecordStore) Count(ctx context.Context, query secondary.RecordQuery) (int, error) {
	n := 0
	for _, err := range s.Select(ctx, query) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Select yields matching records ordered by id, reading one page at a time
// with keyset pagination. No rows are held open while the caller runs.
func (s *RecordStore) Select(ctx context.Context, query secondary.RecordQuery) iter.Seq2[record.Ref, error] {
	return func(yield func(record.Ref, error) bool) {
		after := query.AfterID
		for {
			page, err := s.page(ctx, query, after)
			if err != nil {
				yield(record.Ref{}, err)
				return
			}
			for _, ref := range page {
				after = ref.ID
				if !filter.MatchesAll(query.Filters, ref.Properties) {
					continue
				}
				if !yield(ref, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
		}
	}
}

func (s *RecordStore) page(ctx context.Context, query secondary.RecordQuery, after string) ([]record.Ref, error) {
	sqlQuery := "SELECT id, properties FROM records WHERE domain = ? AND record_type = ? AND id > ?"
	args := []any{query.Domain, query.RecordType, after}

	if len(query.IDs) > 0 {
		sqlQuery += " AND id IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(query.IDs)), ", ") + ")"
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}
	sqlQuery += " ORDER BY id LIMIT ?"
	args = append(args, s.pageSize)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to select records: %w", err))
	}
	defer rows.Close()

	var page []record.Ref
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		props, err := decodeProperties(data)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		page = append(page, record.Ref{ID: id, Properties: props})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to select records: %w", err))
	}
	return page, nil
}

// Write merges updates into a record and logs the write under a new form id,
// which is returned as the side-effect id.
func (s *RecordStore) Write(ctx context.Context, w secondary.RecordWrite) (string, error) {
	formID := uuid.NewString()
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var data string
		err := tx.QueryRowContext(ctx,
			"SELECT properties FROM records WHERE id = ? AND domain = ?", w.RecordID, w.Domain,
		).Scan(&data)
		if err == sql.ErrNoRows {
			return fmt.Errorf("record %s not found", w.RecordID)
		}
		if err != nil {
			return err
		}

		props, err := decodeProperties(data)
		if err != nil {
			return err
		}
		for k, v := range w.Updates {
			props[k] = v
		}

		merged, err := encodeProperties(props)
		if err != nil {
			return err
		}
		updates, err := encodeProperties(w.Updates)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE records SET properties = ?, updated_at = ? WHERE id = ?",
			merged, time.Now().UTC(), w.RecordID,
		); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO record_writes (form_id, record_id, session_id, updates) VALUES (?, ?, ?, ?)",
			formID, w.RecordID, w.SessionID, updates,
		)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if cerr := classify(err); errors.Is(cerr, errs.ErrStoreUnavailable) {
			return "", cerr
		}
		return "", &errs.RecordWriteError{RecordID: w.RecordID, Attempts: 1, Err: err}
	}
	return formID, nil
}

// Put creates or replaces a record.
func (s *RecordStore) Put(ctx context.Context, domain, recordType string, ref record.Ref) error {
	data, err := encodeProperties(ref.Properties)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, domain, record_type, properties, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET domain = excluded.domain, record_type = excluded.record_type,
			properties = excluded.properties, updated_at = excluded.updated_at`,
		ref.ID, domain, recordType, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to put record %s: %w", ref.ID, err)
	}
	return nil
}

// classify marks errors meaning the database itself is unusable.
func classify(err error) error {
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return err
}

func decodeProperties(data string) (record.Properties, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	props := make(record.Properties, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			props[k] = nil
		case string:
			props[k] = record.String(val)
		case float64:
			props[k] = record.String(strconv.FormatFloat(val, 'f', -1, 64))
		case bool:
			props[k] = record.String(strconv.FormatBool(val))
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("failed to decode property %s: %w", k, err)
			}
			props[k] = record.String(string(b))
		}
	}
	return props, nil
}

func encodeProperties(props record.Properties) (string, error) {
	if props == nil {
		props = record.Properties{}
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(b), nil
}

// Ensure RecordStore implements the interfaces
var (
	_ secondary.RecordStore    = (*RecordStore)(nil)
	_ secondary.RecordSelector = (*RecordStore)(nil)
)
