package migrations

import (
	"database/sql"
	"fmt"
)

// allMigrations returns every schema migration; add new ones at the end.
func allMigrations() []Migration {
	return []Migration{
		{
			ID:          "000_initial_schema",
			Description: "Create notes table",
			Up:          migration000Up,
			Down:        migration000Down,
		},
		{
			ID:          "001_notes_created_index",
			Description: "Index notes by creation time for paginated listing",
			Up:          migration001Up,
			Down:        migration001Down,
		},
	}
}

func migration000Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			tag TEXT NOT NULL DEFAULT 'Todo',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}
	return nil
}

func migration000Down(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP TABLE IF EXISTS notes"); err != nil {
		return fmt.Errorf("failed to drop notes table: %w", err)
	}
	return nil
}

func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at DESC)")
	if err != nil {
		return fmt.Errorf("failed to create notes index: %w", err)
	}
	return nil
}

func migration001Down(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP INDEX IF EXISTS idx_notes_created_at"); err != nil {
		return fmt.Errorf("failed to drop notes index: %w", err)
	}
	return nil
}
