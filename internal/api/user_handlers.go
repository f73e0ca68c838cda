package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vrsandeep/podcatch/internal/auth"
	"github.com/vrsandeep/podcatch/internal/gpodder"
)

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, getUserFromContext(r))
}

func (s *Server) handleUpdateSyncSettings(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	var payload struct {
		SyncType  string `json:"sync_type"`
		SyncURL   string `json:"sync_url"`
		SyncToken string `json:"sync_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	syncType := strings.TrimSpace(payload.SyncType)
	switch strings.ToLower(syncType) {
	case "", "none":
		syncType, payload.SyncURL, payload.SyncToken = gpodder.SyncTypeNone, "", ""
	case "nextcloud":
		if payload.SyncURL == "" || payload.SyncToken == "" {
			RespondWithError(w, http.StatusBadRequest, "sync_url and sync_token are required")
			return
		}
		syncType = "nextcloud"
	default:
		RespondWithError(w, http.StatusBadRequest, "Unsupported sync type")
		return
	}

	if err := s.store.UpdateUserSync(r.Context(), user.ID, syncType, payload.SyncURL, payload.SyncToken); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to update sync settings")
		return
	}
	updated, err := s.store.GetUserByID(r.Context(), user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload user")
		return
	}
	RespondWithJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	key, err := auth.IssueAPIKey(r.Context(), s.store, user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}
	RespondWithJSON(w, http.StatusCreated, map[string]string{"api_key": key})
}
