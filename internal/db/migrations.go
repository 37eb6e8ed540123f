package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_session_and_record_tables",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_audit_log",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_session_progress_columns",
		Up:      migrationV3,
	},
}

func createVersionTable(database *sql.DB) error {
	_, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// RunMigrations executes all pending migrations, each in its own transaction.
func RunMigrations(database *sql.DB) error {
	if err := createVersionTable(database); err != nil {
		return err
	}

	var currentVersion int
	err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the first release of the schema: sessions without
// progress tracking, their configuration tables and the record tables.
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			record_type TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('active', 'committing', 'completed', 'failed', 'archived')) DEFAULT 'active',
			next_sequence INTEGER NOT NULL DEFAULT 1,
			task_id TEXT,
			num_changed_records INTEGER NOT NULL DEFAULT 0,
			percent_complete INTEGER NOT NULL DEFAULT 0 CHECK(percent_complete BETWEEN 0 AND 100),
			error_detail TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			committed_at DATETIME,
			completed_at DATETIME,
			archived_at DATETIME,
			CHECK(completed_at IS NULL OR committed_at IS NOT NULL)
		);
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

		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			record_type TEXT NOT NULL,
			properties TEXT NOT NULL DEFAULT '{}',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_records_scope ON records(domain, record_type, id);
		CREATE TABLE IF NOT EXISTS record_writes (
			form_id TEXT PRIMARY KEY,
			record_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			updates TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (record_id) REFERENCES records(id)
		);
		CREATE INDEX IF NOT EXISTS idx_record_writes_session ON record_writes(session_id);
	`)
	return err
}

// migrationV2 adds the audit trail of session mutations.
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	return err
}

// migrationV3 adds durable batch boundaries and the failure list so that an
// interrupted commit run can resume.
func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
		ALTER TABLE sessions ADD COLUMN records_processed INTEGER NOT NULL DEFAULT 0;
		ALTER TABLE sessions ADD COLUMN last_record_id TEXT;
		ALTER TABLE sessions ADD COLUMN total_records INTEGER NOT NULL DEFAULT 0;
		CREATE TABLE IF NOT EXISTS session_failures (
			session_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			error TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, record_id),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`)
	return err
}
