// Package db provides unit tests for schema migrations.
package db

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func openBare(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestMigrateCreatesCollections(t *testing.T) {
	sqlDB := openBare(t)

	if err := Migrate(sqlDB); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	for _, table := range []string{"inspections", "email_queue"} {
		var name string
		err := sqlDB.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}

	migrator := NewMigrator(sqlDB)
	version, err := migrator.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	sqlDB := openBare(t)

	if err := Migrate(sqlDB); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}
	if err := Migrate(sqlDB); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	migrator := NewMigrator(sqlDB)
	applied, err := migrator.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations failed: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("got %d applied migrations, want 2", len(applied))
	}
	for _, mig := range applied {
		if len(mig.Checksum) != 64 {
			t.Errorf("migration V%d checksum length = %d, want 64", mig.Version, len(mig.Checksum))
		}
	}
}

// A database persisted at V1 must gain the email_queue collection on
// the next open without its existing data being touched.
func TestUpgradeCreatesOnlyMissingCollections(t *testing.T) {
	sqlDB := openBare(t)

	migrator := NewMigrator(sqlDB)
	if err := migrator.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := migrator.applyMigration(1, "V1__inspections.up.sql"); err != nil {
		t.Fatalf("applying V1 failed: %v", err)
	}

	if _, err := sqlDB.Exec(
		"INSERT INTO inspections (body, created_at) VALUES (?, ?)", `{"clientName":"TAKMA"}`, 1); err != nil {
		t.Fatalf("seeding V1 data failed: %v", err)
	}

	if err := migrator.Up(); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM inspections").Scan(&count); err != nil {
		t.Fatalf("reading existing data failed: %v", err)
	}
	if count != 1 {
		t.Errorf("existing inspections touched by upgrade: count = %d", count)
	}

	if _, err := sqlDB.Exec("SELECT id FROM email_queue"); err != nil {
		t.Errorf("email_queue not created by upgrade: %v", err)
	}
}
