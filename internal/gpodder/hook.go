package gpodder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/vrsandeep/podcatch/internal/feed"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/store"
)

// Inspector reads channel metadata for a newly synced feed.
type Inspector interface {
	Inspect(ctx context.Context, feedURL string, creds *models.Credentials) (*feed.PodcastValues, error)
}

// Hook applies remote subscription changes to the local store.
type Hook struct {
	st        *store.Store
	inspector Inspector
	providers map[string]Provider
}

// NewHook creates a Hook with the given providers. inspector may be nil, in
// which case new subscriptions are named after their feed URL.
func NewHook(st *store.Store, inspector Inspector, providers ...Provider) *Hook {
	h := &Hook{st: st, inspector: inspector, providers: make(map[string]Provider)}
	for _, p := range providers {
		h.Register(p)
	}
	return h
}

// Register adds or replaces the provider for its sync type.
func (h *Hook) Register(p Provider) {
	h.providers[normalizeSyncType(p.SyncType())] = p
}

// SyncType returns the user's configured sync type, or "None".
func (h *Hook) SyncType(ctx context.Context, userID int64) string {
	user, err := h.st.GetUserByID(ctx, userID)
	if err != nil || isDisabled(user.SyncType) {
		return SyncTypeNone
	}
	return user.SyncType
}

// Sync pulls the user's remote subscriptions and adds or removes local
// subscriptions to match. Users without a sync type are a no-op.
func (h *Hook) Sync(ctx context.Context, userID int64) (models.SyncResult, error) {
	var result models.SyncResult

	user, err := h.st.GetUserByID(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("could not load user %d: %w", userID, err)
	}
	if isDisabled(user.SyncType) {
		return result, nil
	}
	provider, ok := h.providers[normalizeSyncType(user.SyncType)]
	if !ok {
		return result, fmt.Errorf("no sync provider for type %q", user.SyncType)
	}

	changes, err := provider.Subscriptions(ctx, user)
	if err != nil {
		return result, err
	}
	existing, err := h.st.FeedURLsForUser(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("could not list subscriptions: %w", err)
	}

	for _, raw := range changes.Add {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}
		if _, ok := existing[url]; ok {
			continue
		}
		sub, err := h.st.CreateSubscription(ctx, h.newSubscription(ctx, userID, url))
		if err != nil {
			log.Printf("gpodder: user %d: could not subscribe to %s: %v", userID, url, err)
			continue
		}
		existing[url] = sub.ID
		result.Added++
	}

	for _, raw := range changes.Remove {
		id, ok := existing[strings.TrimSpace(raw)]
		if !ok {
			continue
		}
		if err := h.st.DeleteSubscription(ctx, userID, id); err != nil {
			log.Printf("gpodder: user %d: could not remove %s: %v", userID, raw, err)
			continue
		}
		delete(existing, strings.TrimSpace(raw))
		result.Removed++
	}

	log.Printf("gpodder: user %d synced via %s: %d added, %d removed", userID, provider.SyncType(), result.Added, result.Removed)
	return result, nil
}

func (h *Hook) newSubscription(ctx context.Context, userID int64, url string) *models.Subscription {
	sub := &models.Subscription{UserID: userID, Name: url, FeedURL: url}
	if h.inspector == nil {
		return sub
	}
	values, err := h.inspector.Inspect(ctx, url, nil)
	if err != nil {
		log.Printf("gpodder: could not read metadata for %s: %v", url, err)
		return sub
	}
	if values.Title != "" {
		sub.Name = values.Title
	}
	sub.ArtworkURL = values.ArtworkURL
	sub.Description = values.Description
	sub.Author = values.Author
	sub.Website = values.Website
	sub.Categories = strings.Join(values.Categories, ", ")
	return sub
}

// SyncAllResult summarises a sync pass over every user with a sync type.
type SyncAllResult struct {
	Users  int
	Failed int
	models.SyncResult
}

// SyncAll syncs every user that has a sync type configured. Per-user
// failures are logged and counted; the error is non-nil only when the user
// list could not be loaded or ctx was cancelled.
func (h *Hook) SyncAll(ctx context.Context) (SyncAllResult, error) {
	var total SyncAllResult
	users, err := h.st.ListUsersWithSync(ctx)
	if err != nil {
		return total, fmt.Errorf("could not list users with sync: %w", err)
	}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		total.Users++
		res, err := h.Sync(ctx, user.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return total, err
			}
			log.Printf("gpodder: sync failed for user %d: %v", user.ID, err)
			total.Failed++
			continue
		}
		total.Added += res.Added
		total.Removed += res.Removed
	}
	return total, nil
}
