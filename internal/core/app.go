package core

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/vrsandeep/podcatch/internal/config"
	"github.com/vrsandeep/podcatch/internal/db"
	"github.com/vrsandeep/podcatch/internal/downloader"
	"github.com/vrsandeep/podcatch/internal/feed"
	"github.com/vrsandeep/podcatch/internal/gpodder"
	"github.com/vrsandeep/podcatch/internal/jobs"
	"github.com/vrsandeep/podcatch/internal/refresh"
	"github.com/vrsandeep/podcatch/internal/store"
	"github.com/vrsandeep/podcatch/internal/websocket"
	"github.com/vrsandeep/podcatch/internal/youtube"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	config     *config.Config
	db         *sql.DB
	store      *store.Store
	fetcher    *feed.Fetcher
	dispatcher *downloader.Dispatcher
	syncHook   *gpodder.Hook
	refresher  *refresh.Manager
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	Version    string
}

// New sets up and returns a new App instance from config.yml.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig opens the database named in cfg, runs migrations and
// assembles the App.
func NewWithConfig(cfg *config.Config) (*App, error) {
	database, err := db.InitDB(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database, cfg.Database.Driver); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	log.Println("Core application setup complete.")
	return Assemble(cfg, database), nil
}

// Assemble wires every component around an open, migrated database.
func Assemble(cfg *config.Config, database *sql.DB) *App {
	client := &http.Client{Timeout: cfg.FetchTimeout()}

	st := store.New(database)
	fetcher := feed.NewFetcher(client, cfg.Fetch.UserAgent)
	dispatcher := downloader.NewDispatcher(st)
	hook := gpodder.NewHook(st, fetcher, gpodder.NewNextcloud(client))

	app := &App{
		config:     cfg,
		db:         database,
		store:      st,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		syncHook:   hook,
		wsHub:      websocket.NewHub(),
		Version:    "dev",
	}
	app.refresher = refresh.NewManager(refresh.Deps{
		Store:      st,
		Fetcher:    fetcher,
		Parser:     feed.NewParser(),
		Dispatcher: dispatcher,
		Sync:       hook,
		YouTube:    youtube.NewIngester(client),
	}, refresh.Config{
		SubscriptionDelay: cfg.SubscriptionDelay(),
		StreamBuffer:      cfg.Refresh.StreamBuffer,
	})
	app.jobManager = jobs.NewManager(app)
	jobs.RegisterAll(app.jobManager)
	return app
}

func (a *App) Config() *config.Config             { return a.config }
func (a *App) DB() *sql.DB                        { return a.db }
func (a *App) Store() *store.Store                { return a.store }
func (a *App) Fetcher() *feed.Fetcher             { return a.fetcher }
func (a *App) Dispatcher() *downloader.Dispatcher { return a.dispatcher }
func (a *App) SyncHook() *gpodder.Hook            { return a.syncHook }
func (a *App) Refresher() *refresh.Manager        { return a.refresher }
func (a *App) WsHub() *websocket.Hub              { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager       { return a.jobManager }

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
