// Package api exposes the refresh engine over HTTP. It defines the API
// server, sets up the routes using chi, and links them to the handlers.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vrsandeep/podcatch/internal/core"
	"github.com/vrsandeep/podcatch/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	store *store.Store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app, store: app.Store()}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	// WebSocket routes stay outside the request timeout; they live as long
	// as the session does.
	r.Group(func(r chi.Router) {
		r.Use(s.APIKeyMiddleware)
		r.Get("/ws/api/data/episodes/{userID}", s.handleRefreshWebsocket)
		r.With(s.AdminOnlyMiddleware).Get("/ws/admin/progress", func(w http.ResponseWriter, r *http.Request) {
			s.app.WsHub().ServeWs(w, r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/api/health", s.handleHealth)
		r.Get("/api/version", s.handleGetVersion)

		r.Group(func(r chi.Router) {
			r.Use(s.APIKeyMiddleware)

			r.Get("/api/users/me", s.handleGetMe)
			r.Put("/api/users/me/sync", s.handleUpdateSyncSettings)
			r.Post("/api/users/me/api-keys", s.handleCreateAPIKey)

			r.Route("/api/data", func(r chi.Router) {
				r.Get("/podcast_values", s.handlePodcastValues)

				r.Get("/subscriptions", s.handleListSubscriptions)
				r.Post("/subscriptions", s.handleCreateSubscription)
				r.Delete("/subscriptions/{subID}", s.handleDeleteSubscription)
				r.Get("/subscriptions/{subID}/episodes", s.handleListEpisodes)

				r.Get("/downloads", s.handleListDownloads)

				r.Group(func(r chi.Router) {
					r.Use(s.AdminOnlyMiddleware)
					r.Get("/refresh_pods", s.handleRefreshPods)
					r.Get("/refresh_gpodder_subscriptions", s.handleRefreshGpodder)
				})
			})

			r.Route("/api/admin", func(r chi.Router) {
				r.Use(s.AdminOnlyMiddleware)

				r.Get("/jobs/status", s.handleGetAdminJobsStatus)
				r.Post("/jobs/run", s.handleRunAdminJob)
				r.Get("/refresh/running", s.handleGetRunningRefreshes)

				r.Get("/users", s.handleAdminListUsers)
				r.Post("/users", s.handleAdminCreateUser)
			})
		})
	})

	return r
}
