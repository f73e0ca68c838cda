package testutil

import (
	"testing"

	"github.com/vrsandeep/podcatch/internal/api"
	"github.com/vrsandeep/podcatch/internal/config"
	"github.com/vrsandeep/podcatch/internal/core"
)

// TestConfig returns a configuration suited to tests: no delays and a
// temporary download directory.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Refresh.StreamBuffer = 100
	cfg.Fetch.TimeoutSeconds = 5
	cfg.Downloads.Path = t.TempDir()
	cfg.Downloads.Workers = 1
	return cfg
}

// SetupTestApp assembles a full core.App on a fresh test database.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	app := core.Assemble(TestConfig(t), SetupTestDB(t))
	app.Version = "test"
	go app.WsHub().Run()
	return app
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t)
	return api.NewServer(app), app
}
