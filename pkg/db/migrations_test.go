package db

import (
	"os"
	"path/filepath"
	"testing"
)

const migrationsTestPrefix = "db:migrations_test"

func TestLoadMigrationFiles_SortedByName(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_add_index.sql":    "CREATE INDEX b ON t (x);",
		"001_create_table.sql": "CREATE TABLE t (x INT);",
		"notes.txt":            "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - write %s: %v", migrationsTestPrefix, name, err)
		}
	}

	migrations, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(migrations) != 2 {
		t.Fatalf("%s - got %d migrations, want 2", migrationsTestPrefix, len(migrations))
	}
	if migrations[0].Name != "001_create_table.sql" || migrations[1].Name != "002_add_index.sql" {
		t.Errorf("%s - wrong order: %s, %s", migrationsTestPrefix, migrations[0].Name, migrations[1].Name)
	}
	if migrations[0].SQL != files["001_create_table.sql"] {
		t.Errorf("%s - wrong content: %q", migrationsTestPrefix, migrations[0].SQL)
	}
}

func TestLoadMigrationFiles_MissingDir(t *testing.T) {
	if _, err := LoadMigrationFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Errorf("%s - expected error for missing dir", migrationsTestPrefix)
	}
}

func TestRepoMigrations_Present(t *testing.T) {
	// The shipped migrations directory must load cleanly.
	migrations, err := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(migrations) == 0 {
		t.Fatalf("%s - no migrations shipped", migrationsTestPrefix)
	}
}
