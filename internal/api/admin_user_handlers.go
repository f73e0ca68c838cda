package api

import (
	"encoding/json"
	"net/http"

	"github.com/vrsandeep/podcatch/internal/auth"
	"github.com/vrsandeep/podcatch/internal/models"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	RespondWithJSON(w, http.StatusOK, users)
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Username == "" || (payload.Role != models.RoleAdmin && payload.Role != models.RoleUser) {
		RespondWithError(w, http.StatusBadRequest, "Username and a valid role are required")
		return
	}

	user, err := s.store.CreateUser(r.Context(), payload.Username, payload.Role)
	if err != nil {
		// Could be a unique constraint violation
		RespondWithError(w, http.StatusConflict, "Username already exists")
		return
	}
	key, err := auth.IssueAPIKey(r.Context(), s.store, user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}
	RespondWithJSON(w, http.StatusCreated, map[string]any{"user": user, "api_key": key})
}
