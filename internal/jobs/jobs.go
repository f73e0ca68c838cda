package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/websocket"
)

// Job ids.
const (
	RefreshAllJobID  = "refresh-all"
	GpodderSyncJobID = "gpodder-sync"
)

// RegisterAll registers the built-in jobs with jm.
func RegisterAll(jm *JobManager) {
	jm.Register(RefreshAllJobID, "Refresh All Podcasts", RunRefreshAll)
	jm.Register(GpodderSyncJobID, "Sync gPodder Subscriptions", RunGpodderSync)
}

// RunRefreshAll refreshes every user's subscriptions and then pulls
// subscription changes for users with a sync service.
func RunRefreshAll(app JobContext) error {
	hub := app.WsHub()
	refresher := app.Refresher()
	if refresher == nil {
		return errors.New("refresh engine not configured")
	}
	ctx := context.Background()

	sendProgress(hub, RefreshAllJobID, "Refreshing all podcasts...", 0, false)
	fleet, err := refresher.RefreshAll(ctx, func(done, total int) {
		msg := fmt.Sprintf("Refreshed %d of %d users", done, total)
		sendProgress(hub, RefreshAllJobID, msg, float64(done)/float64(total)*100, false)
	})
	if err != nil {
		sendProgress(hub, RefreshAllJobID, fmt.Sprintf("Refresh failed: %v", err), 100, true)
		return err
	}

	if hook := app.SyncHook(); hook != nil {
		if res, err := hook.SyncAll(ctx); err != nil {
			log.Printf("Job '%s': gpodder sync failed: %v", RefreshAllJobID, err)
		} else if res.Users > 0 {
			log.Printf("Job '%s': gpodder sync for %d users: %d added, %d removed, %d failed",
				RefreshAllJobID, res.Users, res.Added, res.Removed, res.Failed)
		}
	}

	msg := fmt.Sprintf("Refresh complete: %d users, %d podcasts, %d new episodes (%d failed, %d skipped)",
		fleet.UsersRefreshed, fleet.TotalPodcasts, fleet.TotalNewEpisodes, fleet.UsersFailed, fleet.UsersSkipped)
	sendProgress(hub, RefreshAllJobID, msg, 100, true)
	return nil
}

// RunGpodderSync pulls subscription changes for every user with a sync service.
func RunGpodderSync(app JobContext) error {
	hub := app.WsHub()
	hook := app.SyncHook()
	if hook == nil {
		return errors.New("gpodder sync not configured")
	}

	sendProgress(hub, GpodderSyncJobID, "Syncing gPodder subscriptions...", 0, false)
	res, err := hook.SyncAll(context.Background())
	if err != nil {
		sendProgress(hub, GpodderSyncJobID, fmt.Sprintf("Sync failed: %v", err), 100, true)
		return err
	}
	msg := fmt.Sprintf("Sync complete: %d users, %d added, %d removed, %d failed", res.Users, res.Added, res.Removed, res.Failed)
	sendProgress(hub, GpodderSyncJobID, msg, 100, true)
	return nil
}

func sendProgress(hub *websocket.Hub, jobID, message string, progress float64, done bool) {
	if hub == nil {
		return
	}
	status := "in_progress"
	if done {
		status = "completed"
	}
	hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    jobID,
		Message:  message,
		Progress: progress,
		Status:   status,
		Done:     done,
	})
}

// StartJobs starts the background job scheduler. The returned scheduler is
// nil when scheduled refreshes are disabled.
func StartJobs(app JobContext) *gocron.Scheduler {
	interval := app.Config().Refresh.IntervalMinutes
	if interval <= 0 {
		log.Println("Refresh interval is 0, scheduled refresh is disabled.")
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	log.Printf("Scheduling job: '%s' to run every %d minutes.", RefreshAllJobID, interval)
	_, err := s.Every(interval).Minutes().WaitForSchedule().Do(func() {
		log.Println("Scheduler is triggering job:", RefreshAllJobID)
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		if err := app.JobManager().RunJob(RefreshAllJobID, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", RefreshAllJobID, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", RefreshAllJobID, err)
		return nil
	}

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}
