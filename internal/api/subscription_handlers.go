package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/podcatch/internal/feed"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/youtube"
)

func (s *Server) handlePodcastValues(w http.ResponseWriter, r *http.Request) {
	feedURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if feedURL == "" {
		RespondWithError(w, http.StatusBadRequest, "url is required")
		return
	}
	var creds *models.Credentials
	if username := r.URL.Query().Get("username"); username != "" {
		creds = &models.Credentials{Username: username, Password: r.URL.Query().Get("password")}
	}

	values, err := s.app.Fetcher().Inspect(r.Context(), feedURL, creds)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, feed.ErrUnauthorized) {
			status = http.StatusUnauthorized
		}
		RespondWithError(w, status, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"podcast_values": values})
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	subs, err := s.store.GetSubscriptions(r.Context(), user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve subscriptions")
		return
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	RespondWithJSON(w, http.StatusOK, subs)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	var payload struct {
		FeedURL      string `json:"feed_url"`
		Name         string `json:"name"`
		AutoDownload bool   `json:"auto_download"`
		CutoffDays   int    `json:"cutoff_days"`
		IsYouTube    bool   `json:"is_youtube"`
		Username     string `json:"username"`
		Password     string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	payload.FeedURL = strings.TrimSpace(payload.FeedURL)
	if payload.FeedURL == "" || payload.CutoffDays < 0 {
		RespondWithError(w, http.StatusBadRequest, "feed_url is required and cutoff_days must not be negative")
		return
	}

	sub := &models.Subscription{
		UserID:       user.ID,
		Name:         strings.TrimSpace(payload.Name),
		FeedURL:      payload.FeedURL,
		AutoDownload: payload.AutoDownload,
		CutoffDays:   payload.CutoffDays,
		IsYouTube:    payload.IsYouTube,
	}
	if payload.Username != "" {
		sub.Credentials = &models.Credentials{Username: payload.Username, Password: payload.Password}
	}

	if sub.IsYouTube {
		if _, err := youtube.ChannelID(sub.FeedURL); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		values, err := s.app.Fetcher().Inspect(r.Context(), sub.FeedURL, sub.Credentials)
		if err != nil {
			RespondWithError(w, http.StatusBadGateway, "Could not read feed: "+err.Error())
			return
		}
		values.Apply(sub)
	}
	if sub.Name == "" {
		sub.Name = sub.FeedURL
	}

	created, err := s.store.CreateSubscription(r.Context(), sub)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create subscription")
		return
	}
	RespondWithJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	subID, err := strconv.ParseInt(chi.URLParam(r, "subID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid subscription ID")
		return
	}
	err = s.store.DeleteSubscription(r.Context(), user.ID, subID)
	if errors.Is(err, sql.ErrNoRows) {
		RespondWithError(w, http.StatusNotFound, "Subscription not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	subID, err := strconv.ParseInt(chi.URLParam(r, "subID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid subscription ID")
		return
	}
	sub, err := s.store.GetSubscriptionByID(r.Context(), subID)
	if err != nil || (sub.UserID != user.ID && !user.IsAdmin()) {
		RespondWithError(w, http.StatusNotFound, "Subscription not found")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	episodes, err := s.store.ListEpisodes(r.Context(), subID, limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve episodes")
		return
	}
	views := make([]models.EpisodeView, 0, len(episodes))
	for _, ep := range episodes {
		views = append(views, ep.View())
	}
	RespondWithJSON(w, http.StatusOK, views)
}
