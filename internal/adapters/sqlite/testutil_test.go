// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Instead, use
// setupTestDB() and the seed* helpers.
package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/bulkedit/internal/adapters/sqlite"
	"github.com/example/bulkedit/internal/core/column"
	"github.com/example/bulkedit/internal/core/filter"
	"github.com/example/bulkedit/internal/core/record"
	"github.com/example/bulkedit/internal/db"
	"github.com/example/bulkedit/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
// Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	testDB.SetMaxOpenConns(1)

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

var testCreatedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newSessionRecord builds an open session with default pinned filters and columns.
func newSessionRecord(id, userID, recordType string) *secondary.SessionRecord {
	filters := filter.DefaultPinned()
	for i := range filters {
		filters[i].ID = fmt.Sprintf("%s-pin-%d", id, i)
	}
	columns := column.Defaults()
	for i := range columns {
		columns[i].ID = fmt.Sprintf("%s-col-%d", id, i)
	}
	return &secondary.SessionRecord{
		ID:           id,
		UserID:       userID,
		Domain:       "demo",
		RecordType:   recordType,
		Status:       "active",
		Filters:      filters,
		Columns:      columns,
		NextSequence: 1,
		CreatedAt:    testCreatedAt,
	}
}

// seedSession inserts an open session and returns it.
func seedSession(t *testing.T, database *sql.DB, id, userID, recordType string) *secondary.SessionRecord {
	t.Helper()
	session := newSessionRecord(id, userID, recordType)
	if err := sqlite.NewSessionRepository(database).Create(context.Background(), session); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return session
}

// seedRecords inserts n plant records named plant-00001... in the demo domain.
func seedRecords(t *testing.T, database *sql.DB, n int) {
	t.Helper()
	store := sqlite.NewRecordStore(database)
	for i := 1; i <= n; i++ {
		ref := record.Ref{
			ID: fmt.Sprintf("plant-%05d", i),
			Properties: record.Properties{
				"name":      record.String(fmt.Sprintf("plant %d", i)),
				"height_cm": record.String(fmt.Sprintf("%d", i)),
				"status":    record.String("open"),
			},
		}
		if err := store.Put(context.Background(), "demo", "plant", ref); err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}
	}
}

// makeUnwritable installs a trigger rejecting updates to one record.
func makeUnwritable(t *testing.T, database *sql.DB, recordID string) {
	t.Helper()
	_, err := database.Exec(fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS lock_%[1]s BEFORE UPDATE ON records
		WHEN OLD.id = '%[2]s' BEGIN SELECT RAISE(ABORT, 'record %[2]s is locked'); END`,
		fmt.Sprintf("%x", recordID), recordID))
	if err != nil {
		t.Fatalf("failed to lock record: %v", err)
	}
}
