package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All repository
// tests use it via GetSchemaSQL(), so a query referencing a column that does
// not exist here fails with "no such column" at test time.
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//  3. Run `make test` to verify alignment
const SchemaSQL = `
-- Sessions (one bulk-edit workflow per user, domain and record type)
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	record_type TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('active', 'committing', 'completed', 'failed', 'archived')) DEFAULT 'active',
	next_sequence INTEGER NOT NULL DEFAULT 1,
	task_id TEXT,
	num_changed_records INTEGER NOT NULL DEFAULT 0,
	records_processed INTEGER NOT NULL DEFAULT 0,
	last_record_id TEXT,
	total_records INTEGER NOT NULL DEFAULT 0,
	percent_complete INTEGER NOT NULL DEFAULT 0 CHECK(percent_complete BETWEEN 0 AND 100),
	error_detail TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	committed_at DATETIME,
	completed_at DATETIME,
	archived_at DATETIME,
	CHECK(completed_at IS NULL OR committed_at IS NOT NULL)
);

-- At most one open session per scope
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_open_scope
	ON sessions(user_id, domain, record_type)
	WHERE committed_at IS NULL AND archived_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_sessions_committed ON sessions(user_id, domain, committed_at);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS session_filters (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	field TEXT NOT NULL,
	data_type TEXT NOT NULL,
	match_type TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	pinned INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL,
	UNIQUE(session_id, field, pinned),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS session_columns (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	field TEXT NOT NULL,
	label TEXT NOT NULL,
	data_type TEXT NOT NULL,
	is_system INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL,
	UNIQUE(session_id, field),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS session_changes (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	action TEXT NOT NULL,
	target_field TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	scope TEXT NOT NULL CHECK(scope IN ('ALL_SELECTED', 'EXPLICIT_IDS')),
	explicit_ids TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(session_id, sequence),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS session_side_effects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	side_effect_id TEXT NOT NULL,
	UNIQUE(session_id, side_effect_id),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS session_failures (
	session_id TEXT NOT NULL,
	record_id TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	error TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (session_id, record_id),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

-- Audit trail of session mutations
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	actor_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update')),
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id);

-- Records edited by sessions
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	domain TEXT NOT NULL,
	record_type TEXT NOT NULL,
	properties TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_records_scope ON records(domain, record_type, id);

-- One row per record write; form_id is the side-effect id
CREATE TABLE IF NOT EXISTS record_writes (
	form_id TEXT PRIMARY KEY,
	record_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	updates TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (record_id) REFERENCES records(id)
);

CREATE INDEX IF NOT EXISTS idx_record_writes_session ON record_writes(session_id);
`

// InitSchema creates the schema on a fresh database, or runs pending
// migrations on an existing one.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	if tableCount > 0 {
		return RunMigrations(database)
	}

	// Fresh install: create the current schema and mark every migration applied.
	if _, err := database.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := createVersionTable(database); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
