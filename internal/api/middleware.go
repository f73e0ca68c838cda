package api

// This file contains the middleware for handling authentication and role-based authorization.

import (
	"context"
	"errors"
	"net/http"

	"github.com/vrsandeep/podcatch/internal/auth"
	"github.com/vrsandeep/podcatch/internal/models"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey string

const userContextKey = contextKey("user")

// APIKeyHeader carries the API key. Websocket clients that cannot set
// headers pass it as the api_key query parameter instead.
const APIKeyHeader = "Api-Key"

var errInvalidKey = errors.New("invalid api key")

// APIKeyMiddleware verifies the request's API key and injects the owning
// user into the request context.
func (s *Server) APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key == "" {
			RespondWithError(w, http.StatusUnauthorized, "Missing API key")
			return
		}

		user, err := s.authenticate(r.Context(), key)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticate(ctx context.Context, key string) (*models.User, error) {
	prefix, secret, err := auth.SplitAPIKey(key)
	if err != nil {
		return nil, err
	}
	userID, hash, err := s.store.GetAPIKey(ctx, prefix)
	if err != nil {
		return nil, errInvalidKey
	}
	if !auth.CheckSecret(secret, hash) {
		return nil, errInvalidKey
	}
	return s.store.GetUserByID(ctx, userID)
}

// AdminOnlyMiddleware is a middleware that ensures only users with the 'admin' role can access a route.
// It must be chained *after* the APIKeyMiddleware.
func (s *Server) AdminOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := getUserFromContext(r)
		if user == nil {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !user.IsAdmin() {
			RespondWithError(w, http.StatusForbidden, "Forbidden: Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getUserFromContext is a helper function to safely retrieve the user object from the request context.
// It returns nil if the user is not found in the context.
func getUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
