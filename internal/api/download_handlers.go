package api

import (
	"net/http"

	"github.com/vrsandeep/podcatch/internal/models"
)

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	jobs, err := s.store.ListDownloadJobs(r.Context(), user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve downloads")
		return
	}
	if jobs == nil {
		jobs = []*models.DownloadJob{}
	}
	RespondWithJSON(w, http.StatusOK, jobs)
}
