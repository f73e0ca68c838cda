package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vrsandeep/podcatch/internal/models"
)

// job holds the counters of one user's run.
type job struct {
	userID      int64
	subs        []models.Subscription
	current     int
	successes   int
	failures    int
	newEpisodes int
}

func (j *job) summary(started, finished time.Time) Summary {
	return Summary{
		UserID:      j.userID,
		Total:       len(j.subs),
		Successes:   j.successes,
		Failures:    j.failures,
		NewEpisodes: j.newEpisodes,
		Duration:    finished.Sub(started),
	}
}

func (m *Manager) run(ctx context.Context, userID int64, opts Options, stream *Stream) (Summary, error) {
	started := m.now()

	if opts.SyncFirst && m.deps.Sync != nil {
		m.syncFirst(ctx, userID, stream)
	}

	subs, err := m.deps.Store.GetSubscriptions(ctx, userID)
	if err != nil {
		return Summary{}, &PersistenceError{Op: "load subscriptions", Err: err}
	}
	j := &job{userID: userID, subs: subs}
	total := uint32(len(subs))

	stream.Send(StatusUpdate{Current: 0, Total: total, Label: "Starting podcast refresh..."})

	for i, sub := range subs {
		j.current = i + 1
		stream.Send(StatusUpdate{Current: uint32(j.current), Total: total, Label: sub.Name})

		inserted, err := m.refreshSubscription(ctx, j, sub, stream)
		var persistErr *PersistenceError
		switch {
		case errors.As(err, &persistErr):
			return j.summary(started, m.now()), err
		case err != nil:
			j.failures++
			log.Printf("refresh: user %d: subscription %d (%s) failed: %v", userID, sub.ID, sub.FeedURL, err)
		default:
			j.successes++
			j.newEpisodes += inserted
		}

		if m.delay > 0 && i < len(subs)-1 {
			select {
			case <-ctx.Done():
				return j.summary(started, m.now()), ctx.Err()
			case <-time.After(m.delay):
			}
		}
	}

	return j.summary(started, m.now()), nil
}

func (m *Manager) syncFirst(ctx context.Context, userID int64, stream *Stream) {
	syncType := m.deps.Sync.SyncType(ctx, userID)
	if syncType == "" || strings.EqualFold(syncType, "none") {
		return
	}
	stream.Send(StatusUpdate{Label: fmt.Sprintf("Syncing with gPodder (%s)...", syncType)})
	result, err := m.deps.Sync.Sync(ctx, userID)
	if err != nil {
		log.Printf("refresh: user %d: gpodder sync failed: %v", userID, err)
		stream.Send(StatusUpdate{Label: fmt.Sprintf("gPodder sync failed: %v", err)})
		return
	}
	stream.Send(StatusUpdate{Label: fmt.Sprintf("gPodder sync completed: %d added, %d removed", result.Added, result.Removed)})
}

// refreshSubscription processes one subscription and returns the number of
// newly stored episodes. Only a *PersistenceError is fatal to the run.
func (m *Manager) refreshSubscription(ctx context.Context, j *job, sub models.Subscription, stream *Stream) (int, error) {
	drafts, err := m.collect(ctx, sub)
	if err != nil {
		return 0, err
	}
	drafts = applyCutoff(drafts, sub.CutoffDays, m.now())

	inserted, err := m.deps.Store.InsertNewEpisodes(ctx, sub.ID, drafts)
	if err != nil {
		return 0, &PersistenceError{Op: "insert episodes", Err: err}
	}

	// Inserted rows are committed, so they are announced and dispatched even
	// if the count update below fails.
	for _, ep := range inserted {
		stream.Send(NewEpisode{Episode: ep})
		if sub.AutoDownload {
			m.dispatch(ctx, j.userID, ep)
		}
	}

	if err := m.deps.Store.UpdateEpisodeCount(ctx, sub.ID); err != nil {
		return len(inserted), &PersistenceError{Op: "update episode count", Err: err}
	}
	return len(inserted), nil
}

// collect produces the drafts of one subscription. A panic inside a
// collaborator counts as a failure of this subscription only.
func (m *Manager) collect(ctx context.Context, sub models.Subscription) (drafts []models.EpisodeDraft, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while reading %s: %v", sub.FeedURL, r)
		}
	}()

	if sub.IsYouTube {
		if m.deps.YouTube == nil {
			return nil, errors.New("no youtube ingester configured")
		}
		return m.deps.YouTube.Ingest(ctx, sub)
	}

	body, err := m.deps.Fetcher.Fetch(ctx, sub.FeedURL, sub.Credentials)
	if err != nil {
		return nil, err
	}
	return m.deps.Parser.Parse(body, sub.ID, sub.ArtworkURL)
}

func (m *Manager) dispatch(ctx context.Context, userID int64, ep models.Episode) {
	if m.deps.Dispatcher == nil {
		return
	}
	isYouTube := strings.Contains(ep.AudioURL, "youtube.com") || strings.Contains(ep.AudioURL, "youtu.be")
	jobID, err := m.deps.Dispatcher.Enqueue(ctx, ep.ID, userID, isYouTube)
	if err != nil {
		log.Printf("refresh: user %d: could not queue download of episode %d: %v", userID, ep.ID, err)
		return
	}
	log.Printf("refresh: queued download %s for episode %d", jobID, ep.ID)
}

// applyCutoff drops drafts published more than cutoffDays ago. Zero keeps all.
func applyCutoff(drafts []models.EpisodeDraft, cutoffDays int, now time.Time) []models.EpisodeDraft {
	if cutoffDays <= 0 {
		return drafts
	}
	limit := now.AddDate(0, 0, -cutoffDays)
	kept := make([]models.EpisodeDraft, 0, len(drafts))
	for _, d := range drafts {
		if !d.PubDate.Before(limit) {
			kept = append(kept, d)
		}
	}
	return kept
}
