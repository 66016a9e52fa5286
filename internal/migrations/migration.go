package migrations

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/streed/notes-browser/internal/logger"
)

// Migration is one forward schema step with an optional rollback.
type Migration struct {
	ID          string // Sortable identifier, e.g. "001_notes_created_index"
	Description string
	Up          func(tx *sql.Tx) error
	Down        func(tx *sql.Tx) error
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
}

// Runner applies migrations to a SQLite database and records them in
// schema_migrations.
type Runner struct {
	db         *sql.DB
	migrations []Migration
}

func NewRunner(db *sql.DB) *Runner {
	return newRunner(db, allMigrations())
}

func newRunner(db *sql.DB, migrations []Migration) *Runner {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &Runner{db: db, migrations: sorted}
}

func (r *Runner) ensureTable() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (r *Runner) applied() (map[string]bool, error) {
	rows, err := r.db.Query("SELECT id FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration id: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// Run applies every pending migration, each in its own transaction, and
// returns how many were applied.
func (r *Runner) Run() (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, err
	}

	applied, err := r.applied()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range r.migrations {
		if applied[m.ID] {
			logger.Debug("Migration %s already applied, skipping", m.ID)
			continue
		}

		logger.Debug("Running migration: %s - %s", m.ID, m.Description)
		err := r.inTx(func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (id, description, applied_at) VALUES (?, ?, ?)",
				m.ID, m.Description, time.Now().UTC(),
			)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("migration %s failed: %w", m.ID, err)
		}
		count++
	}

	if count > 0 {
		logger.Info("Applied %d database migrations", count)
	}
	return count, nil
}

// Status lists every known migration with its applied flag.
func (r *Runner) Status() ([]MigrationStatus, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	applied, err := r.applied()
	if err != nil {
		return nil, err
	}

	status := make([]MigrationStatus, 0, len(r.migrations))
	for _, m := range r.migrations {
		status = append(status, MigrationStatus{
			ID:          m.ID,
			Description: m.Description,
			Applied:     applied[m.ID],
		})
	}
	return status, nil
}

// Rollback reverts a single applied migration.
func (r *Runner) Rollback(id string) error {
	var target *Migration
	for i := range r.migrations {
		if r.migrations[i].ID == id {
			target = &r.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found", id)
	}
	if target.Down == nil {
		return fmt.Errorf("migration %s does not support rollback", id)
	}

	applied, err := r.applied()
	if err != nil {
		return err
	}
	if !applied[id] {
		return fmt.Errorf("migration %s is not applied", id)
	}

	err = r.inTx(func(tx *sql.Tx) error {
		if err := target.Down(tx); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM schema_migrations WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("rollback %s failed: %w", id, err)
	}

	logger.Info("Migration %s rolled back", id)
	return nil
}

func (r *Runner) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.Error("Failed to rollback transaction: %v", rollbackErr)
		}
		return err
	}
	return tx.Commit()
}
