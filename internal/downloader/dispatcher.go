// Package downloader queues episode downloads for auto-download
// subscriptions and runs the worker pool that fetches them.
package downloader

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/store"
)

// DispatchError reports a download that could not be queued.
type DispatchError struct {
	EpisodeID int64
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("could not queue download for episode %d: %v", e.EpisodeID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher records download jobs in the download_jobs table.
type Dispatcher struct {
	st *store.Store
}

// NewDispatcher creates a Dispatcher backed by st.
func NewDispatcher(st *store.Store) *Dispatcher {
	return &Dispatcher{st: st}
}

// Enqueue queues one download and returns its job id.
func (d *Dispatcher) Enqueue(ctx context.Context, episodeID, userID int64, isYouTube bool) (string, error) {
	job := &models.DownloadJob{
		ID:        uuid.NewString(),
		EpisodeID: episodeID,
		UserID:    userID,
		IsYouTube: isYouTube,
		Status:    models.DownloadQueued,
		Message:   "Queued",
	}
	if err := d.st.CreateDownloadJob(ctx, job); err != nil {
		return "", &DispatchError{EpisodeID: episodeID, Err: err}
	}
	log.Printf("downloader: queued job %s for episode %d (user %d, youtube=%t)", job.ID, episodeID, userID, isYouTube)
	return job.ID, nil
}
