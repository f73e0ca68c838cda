package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vrsandeep/podcatch/internal/db"
)

// SetupTestDB creates a SQLite database in a temporary directory and applies
// all migrations. It returns the database connection, ready for use in tests.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "podcatch-test.db")
	database, err := db.InitDB(db.DriverMattn, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Attach a cleanup function to automatically close the DB when the test completes.
	t.Cleanup(func() {
		database.Close()
	})

	if err := db.RunMigrations(database, db.DriverMattn); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}
