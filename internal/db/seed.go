package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// fixturePlants are development records with the mix of values the filter
// operators care about: quotes, numbers, dates, multi-select and blanks.
var fixturePlants = []map[string]any{
	{"name": "Riny Iola", "light_level": "high", "height_cm": "11.2", "watered_on": "2024-12-11", "health_issues": "yellow_leaves root_rot", "@status": "open", "owner_id": "u-1"},
	{"name": "Happy's", "light_level": "low", "height_cm": "35.5", "watered_on": "2025-02-03", "health_issues": "", "@status": "open", "owner_id": "u-1"},
	{"name": `Zesty "orange" Flora`, "light_level": "medium", "height_cm": "4", "watered_on": "2025-03-03", "health_issues": "root_rot", "@status": "closed", "owner_id": "u-2"},
	{"name": "Stella", "light_level": "hi", "height_cm": "20", "watered_on": "2025-01-15", "health_issues": "bark_split", "@status": "open", "owner_id": "u-2"},
	{"name": "Olga", "light_level": nil, "height_cm": "7.25", "watered_on": "2024-11-30", "@status": "open", "owner_id": "u-3"},
}

// SeedFixtures populates the records table with development fixtures,
// repeating the fixture set until count records exist for the record type.
func SeedFixtures(database *sql.DB, domain, recordType string, count int) error {
	now := time.Now().UTC()

	tx, err := database.Begin()
	if err != nil {
		return fmt.Errorf("seed records: %w", err)
	}
	defer tx.Rollback()

	for i := range count {
		props := fixturePlants[i%len(fixturePlants)]
		data, err := json.Marshal(props)
		if err != nil {
			return fmt.Errorf("seed records: %w", err)
		}
		id := fmt.Sprintf("%s-%05d", recordType, i+1)
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO records (id, domain, record_type, properties, updated_at) VALUES (?, ?, ?, ?, ?)",
			id, domain, recordType, string(data), now,
		); err != nil {
			return fmt.Errorf("seed records: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed records: %w", err)
	}
	return nil
}
