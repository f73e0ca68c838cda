package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/podcatch/internal/feed"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults when no config file", func(t *testing.T) {
		// Ensure no config file exists for this test
		os.Remove("config.yml")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}

		if cfg.Port != 8040 {
			t.Errorf("Expected default port 8040, got %d", cfg.Port)
		}
		if cfg.Database.Driver != "sqlite3" {
			t.Errorf("Expected default driver 'sqlite3', got '%s'", cfg.Database.Driver)
		}
		if cfg.Database.Path != "./podcatch.db" {
			t.Errorf("Expected default db path './podcatch.db', got '%s'", cfg.Database.Path)
		}
		assert.Equal(t, 30, cfg.Refresh.IntervalMinutes)
		assert.Equal(t, 100, cfg.Refresh.StreamBuffer)
		assert.Equal(t, 100*time.Millisecond, cfg.SubscriptionDelay())
		assert.Equal(t, feed.DefaultUserAgent, cfg.Fetch.UserAgent)
		assert.Equal(t, 1, cfg.Downloads.Workers)
	})

	t.Run("Loads from config file", func(t *testing.T) {
		configContent := `
port: 9999
database:
  driver: "sqlite"
  path: "/tmp/test.db"
refresh:
  subscription_delay_ms: 0
unknown_setting: "should be ignored"
`
		// Viper looks in the CWD, so t.TempDir() is not used here.
		configPath := "config.yml"
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write test config file: %v", err)
		}
		defer os.Remove(configPath)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}

		if cfg.Port != 9999 {
			t.Errorf("Expected port 9999, got %d", cfg.Port)
		}
		if cfg.Database.Driver != "sqlite" {
			t.Errorf("Expected driver 'sqlite', got '%s'", cfg.Database.Driver)
		}
		if cfg.Database.Path != "/tmp/test.db" {
			t.Errorf("Expected db path '/tmp/test.db', got '%s'", cfg.Database.Path)
		}
		assert.Equal(t, time.Duration(0), cfg.SubscriptionDelay())
		assert.Equal(t, 30, cfg.Refresh.IntervalMinutes, "unset keys keep their defaults")
	})

	t.Run("Explicit file and environment override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "podcatch.yml")
		require.NoError(t, os.WriteFile(path, []byte("port: 7000\n"), 0644))
		t.Setenv("PODCATCH_DATABASE_PATH", "/data/env.db")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Port)
		assert.Equal(t, "/data/env.db", cfg.Database.Path)
	})

	t.Run("Fetch timeout falls back when unset", func(t *testing.T) {
		cfg := &Config{}
		assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
		cfg.Fetch.TimeoutSeconds = 5
		assert.Equal(t, 5*time.Second, cfg.FetchTimeout())
	})
}
