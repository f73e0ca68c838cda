package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/podcatch/internal/jobs"
	"github.com/vrsandeep/podcatch/internal/refresh"
	"github.com/vrsandeep/podcatch/internal/websocket"
)

const refreshConflictDetail = "Refresh job already running for this user."

// handleRefreshWebsocket runs an interactive refresh for one user and
// streams its progress over a websocket.
func (s *Server) handleRefreshWebsocket(w http.ResponseWriter, r *http.Request) {
	caller := getUserFromContext(r)
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if caller.ID != userID && !caller.IsAdmin() {
		RespondWithError(w, http.StatusForbidden, "You can only refresh your own podcasts")
		return
	}
	syncFirst, _ := strconv.ParseBool(r.URL.Query().Get("nextcloud_refresh"))

	conn, err := websocket.Upgrade(w, r)
	if err != nil {
		log.Printf("api: refresh websocket upgrade failed for user %d: %v", userID, err)
		return
	}

	stream, err := s.app.Refresher().StartRefresh(context.WithoutCancel(r.Context()), userID, refresh.Options{SyncFirst: syncFirst})
	if errors.Is(err, refresh.ErrAlreadyRunning) {
		websocket.SendDetailAndClose(conn, refreshConflictDetail)
		return
	}
	if err != nil {
		websocket.SendDetailAndClose(conn, "Error during refresh: "+err.Error())
		return
	}
	websocket.ServeRefresh(conn, stream)
}

func (s *Server) handleRefreshPods(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, jobs.RefreshAllJobID, "System-wide refresh initiated.")
}

func (s *Server) handleRefreshGpodder(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, jobs.GpodderSyncJobID, "gPodder sync for all users initiated.")
}

func (s *Server) startJob(w http.ResponseWriter, jobID, detail string) {
	err := s.app.JobManager().RunJob(jobID, s.app)
	switch {
	case errors.Is(err, jobs.ErrJobRunning):
		RespondWithError(w, http.StatusConflict, err.Error())
	case err != nil:
		RespondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		RespondWithJSON(w, http.StatusAccepted, map[string]string{"detail": detail, "job_id": jobID})
	}
}

func (s *Server) handleGetRunningRefreshes(w http.ResponseWriter, r *http.Request) {
	running := s.app.Refresher().Running()
	out := make(map[string]string, len(running))
	for userID, started := range running {
		out[strconv.FormatInt(userID, 10)] = started.UTC().Format("2006-01-02T15:04:05Z")
	}
	RespondWithJSON(w, http.StatusOK, out)
}
