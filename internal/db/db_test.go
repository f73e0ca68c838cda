package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/podcatch/internal/db"
	"github.com/vrsandeep/podcatch/internal/testutil"
)

func TestForeignKeyCascadeDelete(t *testing.T) {
	database := testutil.SetupTestDB(t)

	var foreignKeysEnabled int
	err := database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeysEnabled)
	if err != nil {
		t.Fatalf("Failed to check foreign keys status: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Errorf("Foreign keys should be enabled, got: %d", foreignKeysEnabled)
	}

	now := time.Now()
	_, err = database.Exec("INSERT INTO users (username, role, created_at) VALUES (?, ?, ?)", "testuser", "user", now)
	require.NoError(t, err)
	_, err = database.Exec("INSERT INTO subscriptions (user_id, name, feed_url, created_at) VALUES (1, 'Show', 'https://example.com/feed', ?)", now)
	require.NoError(t, err)
	_, err = database.Exec("INSERT INTO episodes (subscription_id, title, pub_date, created_at) VALUES (1, 'Ep 1', ?, ?)", now, now)
	require.NoError(t, err)
	_, err = database.Exec("INSERT INTO download_jobs (id, episode_id, user_id, created_at, updated_at) VALUES ('job-1', 1, 1, ?, ?)", now, now)
	require.NoError(t, err)

	_, err = database.Exec("DELETE FROM users WHERE id = 1")
	require.NoError(t, err)

	for _, table := range []string{"subscriptions", "episodes", "download_jobs"} {
		var count int
		require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		if count != 0 {
			t.Errorf("Expected %s to be emptied by cascade, got %d rows", table, count)
		}
	}
}

func TestInitDB_BothDrivers(t *testing.T) {
	for _, driver := range []string{db.DriverMattn, db.DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "podcatch.db")
			database, err := db.InitDB(driver, path)
			require.NoError(t, err)
			defer database.Close()

			require.NoError(t, db.RunMigrations(database, driver))
			// Applying twice is a no-op.
			require.NoError(t, db.RunMigrations(database, driver))

			var name string
			err = database.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='episodes'").Scan(&name)
			require.NoError(t, err)
			assert.Equal(t, "episodes", name)
		})
	}
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := db.InitDB("postgres", "/tmp/nope.db")
	assert.Error(t, err)
}
