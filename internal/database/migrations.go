package database

import (
	"fmt"
)

// migrate runs database migrations to create the required schema
func (db *DB) migrate() error {
	migrations := []string{
		createDocumentsTable,
	}

	for i, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Each row holds one whole logical collection serialized as JSON
const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL, -- JSON, encrypted if sensitive
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`
