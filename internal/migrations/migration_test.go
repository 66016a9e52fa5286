package migrations

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrations.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = ?", name).Scan(&n); err != nil {
		t.Fatalf("Failed to inspect schema: %v", err)
	}
	return n > 0
}

func TestRunAppliesPendingMigrationsOnce(t *testing.T) {
	db := openTestDB(t)
	runner := NewRunner(db)

	applied, err := runner.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if applied != len(allMigrations()) {
		t.Errorf("Expected %d migrations applied, got %d", len(allMigrations()), applied)
	}
	if !tableExists(t, db, "notes") || !tableExists(t, db, "idx_notes_created_at") {
		t.Error("Expected notes table and index to exist")
	}

	applied, err = runner.Run()
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("Expected no migrations on second run, got %d", applied)
	}

	status, err := runner.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	for _, s := range status {
		if !s.Applied {
			t.Errorf("Migration %s should be applied", s.ID)
		}
	}
}

func TestRunStopsOnFailureAndRollsBack(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	runner := newRunner(db, []Migration{
		{ID: "000_ok", Description: "ok", Up: migration000Up},
		{ID: "001_fail", Description: "fails", Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec("CREATE TABLE half_done (id INTEGER)"); err != nil {
				return err
			}
			return boom
		}},
	})

	applied, err := runner.Run()
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if applied != 1 {
		t.Errorf("Expected 1 applied migration before failure, got %d", applied)
	}
	if tableExists(t, db, "half_done") {
		t.Error("Failed migration should have been rolled back")
	}
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)
	runner := NewRunner(db)
	if _, err := runner.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if err := runner.Rollback("001_notes_created_index"); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if tableExists(t, db, "idx_notes_created_at") {
		t.Error("Index should be dropped after rollback")
	}

	if err := runner.Rollback("001_notes_created_index"); err == nil {
		t.Error("Expected error rolling back an unapplied migration")
	}
	if err := runner.Rollback("999_missing"); err == nil {
		t.Error("Expected error rolling back an unknown migration")
	}
}
