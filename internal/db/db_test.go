package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnsOf(t *testing.T, database *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := database.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols[name] = true
	}
	require.NoError(t, rows.Err())
	return cols
}

func TestOpen_FreshInstallMarksMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bulkedit.db")

	database, err := Open(path)
	require.NoError(t, err)
	defer database.Close()

	var version int
	require.NoError(t, database.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version))
	assert.Equal(t, migrations[len(migrations)-1].Version, version)

	// Reopening runs no migrations and keeps the data.
	_, err = database.Exec("INSERT INTO records (id, domain, record_type) VALUES ('r1', 'd', 'household')")
	require.NoError(t, err)
	require.NoError(t, database.Close())

	database, err = Open(path)
	require.NoError(t, err)
	var count int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM records").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrations_MatchSchema(t *testing.T) {
	migrated, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)
	migrated.SetMaxOpenConns(1)
	defer migrated.Close()
	require.NoError(t, RunMigrations(migrated))

	fresh, err := OpenMemory()
	require.NoError(t, err)
	defer fresh.Close()

	for _, table := range []string{"sessions", "session_filters", "session_columns", "session_changes",
		"session_side_effects", "session_failures", "audit_log", "records", "record_writes"} {
		assert.Equal(t, columnsOf(t, fresh, table), columnsOf(t, migrated, table), "table %s drifted", table)
	}
}

func TestSchema_OneOpenSessionPerScope(t *testing.T) {
	database, err := OpenMemory()
	require.NoError(t, err)
	defer database.Close()

	insert := "INSERT INTO sessions (id, user_id, domain, record_type) VALUES (?, 'u1', 'd1', 'household')"
	_, err = database.Exec(insert, "S1")
	require.NoError(t, err)

	_, err = database.Exec(insert, "S2")
	require.Error(t, err, "second open session for the scope must violate the unique index")

	_, err = database.Exec("UPDATE sessions SET archived_at = CURRENT_TIMESTAMP, status = 'archived' WHERE id = 'S1'")
	require.NoError(t, err)
	_, err = database.Exec(insert, "S2")
	require.NoError(t, err)
}

func TestSeedFixtures(t *testing.T) {
	database, err := OpenMemory()
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, SeedFixtures(database, "d1", "plant", 12))
	// Seeding again replaces rather than duplicates.
	require.NoError(t, SeedFixtures(database, "d1", "plant", 12))

	var count int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM records WHERE domain = 'd1' AND record_type = 'plant'").Scan(&count))
	assert.Equal(t, 12, count)
}
