// Package testing provides testing utilities and helpers for the signalist project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/signalist/signalist/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a temporary-file SQLite database for testing with automatic schema migration.
// Returns the database instance and a cleanup function that closes the connection and removes the file.
// The cleanup function is idempotent and can be called multiple times safely.
//
// Supported schema names:
//   - "signalist" - applies signalist_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, p := range []string{tmpPath, tmpPath + "-wal", tmpPath + "-shm"} {
			_ = os.Remove(p)
		}
	}
}

// NewTestProvider returns a migrated "signalist" database wrapped as a database.Provider.
// The database is closed when the test finishes.
func NewTestProvider(t *testing.T) (database.Provider, *database.DB) {
	t.Helper()

	db, cleanup := NewTestDB(t, "signalist")
	t.Cleanup(cleanup)
	return database.Static(db), db
}
