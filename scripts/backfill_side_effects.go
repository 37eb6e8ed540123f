// +build ignore

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// orphan is a record write whose form id never reached the session's
// side-effect list, left behind by a commit batch that was interrupted
// between writing records and saving progress.
type orphan struct {
	SessionID string
	FormID    string
	RecordID  string
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Preview the backfill without executing")
	dbPath := flag.String("db", "", "Database path (defaults to ~/.bulkedit/bulkedit.db)")
	flag.Parse()

	path := *dbPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home dir: %v\n", err)
			os.Exit(1)
		}
		path = filepath.Join(homeDir, ".bulkedit", "bulkedit.db")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	orphans, err := findOrphans(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding orphaned writes: %v\n", err)
		os.Exit(1)
	}

	if len(orphans) == 0 {
		fmt.Println("No orphaned record writes found")
		return
	}

	fmt.Printf("Found %d orphaned write(s):\n\n", len(orphans))
	for _, o := range orphans {
		fmt.Printf("  %s: record %s -> %s\n", o.SessionID, o.RecordID, o.FormID)
	}
	fmt.Println()

	if *dryRun {
		fmt.Println("=== DRY RUN - No changes made ===")
		return
	}

	fmt.Println("=== Executing backfill ===")
	fmt.Println()

	backfilled := 0
	for _, o := range orphans {
		if err := backfill(db, o); err != nil {
			fmt.Fprintf(os.Stderr, "Error backfilling %s: %v\n", o.FormID, err)
			continue
		}
		backfilled++
	}

	fmt.Printf("=== Backfill complete: %d/%d writes recorded ===\n", backfilled, len(orphans))
}

func findOrphans(db *sql.DB) ([]orphan, error) {
	rows, err := db.Query(`
		SELECT w.session_id, w.form_id, w.record_id
		FROM record_writes w
		JOIN sessions s ON s.id = w.session_id
		LEFT JOIN session_side_effects e ON e.session_id = w.session_id AND e.side_effect_id = w.form_id
		WHERE e.id IS NULL
		ORDER BY w.session_id, w.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orphans []orphan
	for rows.Next() {
		var o orphan
		if err := rows.Scan(&o.SessionID, &o.FormID, &o.RecordID); err != nil {
			return nil, err
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

func backfill(db *sql.DB, o orphan) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO session_side_effects (session_id, side_effect_id) VALUES (?, ?)",
		o.SessionID, o.FormID,
	); err != nil {
		return fmt.Errorf("failed to record side effect: %w", err)
	}

	// The record was changed, so it counts toward num_changed_records.
	if _, err := tx.Exec(
		"UPDATE sessions SET num_changed_records = num_changed_records + 1 WHERE id = ?", o.SessionID,
	); err != nil {
		return fmt.Errorf("failed to update changed count: %w", err)
	}

	return tx.Commit()
}
