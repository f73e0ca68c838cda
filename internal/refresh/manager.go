// Package refresh coordinates podcast refreshes: at most one run per user,
// sequential processing of that user's subscriptions, and live progress.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vrsandeep/podcatch/internal/models"
)

// ErrAlreadyRunning is returned when the user already has a refresh in flight.
var ErrAlreadyRunning = errors.New("refresh job already running for this user")

// PersistenceError is a storage failure. It aborts the run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// FeedStore is the durable state the engine reads and writes.
type FeedStore interface {
	GetSubscriptions(ctx context.Context, userID int64) ([]models.Subscription, error)
	InsertNewEpisodes(ctx context.Context, subscriptionID int64, drafts []models.EpisodeDraft) ([]models.Episode, error)
	UpdateEpisodeCount(ctx context.Context, subscriptionID int64) error
	ListUserIDsWithSubscriptions(ctx context.Context) ([]int64, error)
}

// Fetcher downloads a feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string, creds *models.Credentials) (string, error)
}

// Parser turns a feed document into drafts.
type Parser interface {
	Parse(xmlText string, subscriptionID int64, fallbackArtwork string) ([]models.EpisodeDraft, error)
}

// Dispatcher queues downloads for new episodes of auto-download subscriptions.
type Dispatcher interface {
	Enqueue(ctx context.Context, episodeID, userID int64, isYouTube bool) (string, error)
}

// SyncHook reconciles a user's subscriptions with an external sync service.
type SyncHook interface {
	Sync(ctx context.Context, userID int64) (models.SyncResult, error)
	SyncType(ctx context.Context, userID int64) string
}

// YouTubeIngester produces drafts for channel subscriptions.
type YouTubeIngester interface {
	Ingest(ctx context.Context, sub models.Subscription) ([]models.EpisodeDraft, error)
}

// Deps are the collaborators of a Manager. Store, Fetcher and Parser are
// required; the rest are optional.
type Deps struct {
	Store      FeedStore
	Fetcher    Fetcher
	Parser     Parser
	Dispatcher Dispatcher
	Sync       SyncHook
	YouTube    YouTubeIngester
}

// Config tunes a Manager.
type Config struct {
	SubscriptionDelay time.Duration
	StreamBuffer      int
	Now               func() time.Time
}

// Options select per-run behaviour.
type Options struct {
	// SyncFirst runs the sync hook before the refresh.
	SyncFirst bool
}

// Summary is the outcome of one user's run.
type Summary struct {
	UserID      int64         `json:"user_id"`
	Total       int           `json:"total"`
	Successes   int           `json:"successes"`
	Failures    int           `json:"failures"`
	NewEpisodes int           `json:"new_episodes"`
	Duration    time.Duration `json:"duration"`
}

// Label is the final status line shown to the client.
func (s Summary) Label() string {
	return fmt.Sprintf("Refresh completed: %d/%d successful, %d new episodes", s.Successes, s.Total, s.NewEpisodes)
}

// FleetSummary is the outcome of RefreshAll.
type FleetSummary struct {
	UsersRefreshed   int `json:"users_refreshed"`
	UsersFailed      int `json:"users_failed"`
	UsersSkipped     int `json:"users_skipped"`
	TotalPodcasts    int `json:"total_podcasts"`
	TotalNewEpisodes int `json:"total_new_episodes"`
}

type userEntry struct {
	stream    *Stream
	startedAt time.Time
}

// Manager owns the per-user lock registry.
type Manager struct {
	deps   Deps
	delay  time.Duration
	buffer int
	now    func() time.Time

	mu    sync.Mutex
	users map[int64]*userEntry
}

// NewManager creates a Manager.
func NewManager(deps Deps, cfg Config) *Manager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		deps:   deps,
		delay:  cfg.SubscriptionDelay,
		buffer: cfg.StreamBuffer,
		now:    now,
		users:  make(map[int64]*userEntry),
	}
}

// acquire installs the lock for userID, or fails if one exists.
func (m *Manager) acquire(userID int64, stream *Stream) (*userEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.users[userID]; busy {
		return nil, ErrAlreadyRunning
	}
	entry := &userEntry{stream: stream, startedAt: m.now()}
	m.users[userID] = entry
	return entry, nil
}

func (m *Manager) release(userID int64, entry *userEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[userID] == entry {
		delete(m.users, userID)
	}
}

// IsRunning reports whether userID has a refresh in flight.
func (m *Manager) IsRunning(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[userID]
	return ok
}

// Running lists the users with a refresh in flight and when each started.
func (m *Manager) Running() map[int64]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]time.Time, len(m.users))
	for id, e := range m.users {
		out[id] = e.startedAt
	}
	return out
}

// StartRefresh begins an interactive refresh in the background and returns
// the stream its events are delivered on. The run is detached from ctx's
// cancellation so a disconnecting client does not abort it.
func (m *Manager) StartRefresh(ctx context.Context, userID int64, opts Options) (*Stream, error) {
	stream := NewStream(userID, m.buffer)
	entry, err := m.acquire(userID, stream)
	if err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer stream.Close()
		summary, err := m.runLocked(runCtx, userID, entry, opts, stream)
		if err != nil {
			log.Printf("refresh: user %d: %v", userID, err)
			stream.Send(ErrorEvent{Message: "Error during refresh: " + err.Error()})
			return
		}
		stream.Send(StatusUpdate{Current: uint32(summary.Total), Total: uint32(summary.Total), Label: summary.Label()})
	}()
	return stream, nil
}

// RefreshUser runs a refresh synchronously without a stream.
func (m *Manager) RefreshUser(ctx context.Context, userID int64, opts Options) (Summary, error) {
	entry, err := m.acquire(userID, nil)
	if err != nil {
		return Summary{}, err
	}
	return m.runLocked(ctx, userID, entry, opts, nil)
}

// runLocked runs with the lock already held and releases it before
// returning, whatever the outcome.
func (m *Manager) runLocked(ctx context.Context, userID int64, entry *userEntry, opts Options, stream *Stream) (summary Summary, err error) {
	defer m.release(userID, entry)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
	}()
	return m.run(ctx, userID, opts, stream)
}

// RefreshAll refreshes every user that has subscriptions, one after the
// other. Users whose refresh is already running are skipped. progress, when
// set, is called after each user.
func (m *Manager) RefreshAll(ctx context.Context, progress func(done, total int)) (FleetSummary, error) {
	var fleet FleetSummary
	userIDs, err := m.deps.Store.ListUserIDsWithSubscriptions(ctx)
	if err != nil {
		return fleet, &PersistenceError{Op: "list users", Err: err}
	}

	for i, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return fleet, err
		}
		summary, err := m.RefreshUser(ctx, userID, Options{})
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			log.Printf("refresh: user %d already refreshing, skipped", userID)
			fleet.UsersSkipped++
		case err != nil:
			log.Printf("refresh: user %d failed: %v", userID, err)
			fleet.UsersFailed++
		default:
			fleet.UsersRefreshed++
			fleet.TotalPodcasts += summary.Successes
			fleet.TotalNewEpisodes += summary.NewEpisodes
		}
		if progress != nil {
			progress(i+1, len(userIDs))
		}
	}
	log.Printf("refresh: fleet run done: %d refreshed, %d failed, %d skipped, %d new episodes",
		fleet.UsersRefreshed, fleet.UsersFailed, fleet.UsersSkipped, fleet.TotalNewEpisodes)
	return fleet, nil
}
