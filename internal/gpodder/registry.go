// Package gpodder reconciles a user's subscriptions with an external
// gPodder-compatible sync service before a refresh.
package gpodder

import (
	"context"
	"strings"

	"github.com/vrsandeep/podcatch/internal/models"
)

// SyncTypeNone disables synchronisation for a user.
const SyncTypeNone = "None"

// Changes is the subscription delta reported by a sync service.
type Changes struct {
	Add       []string `json:"add"`
	Remove    []string `json:"remove"`
	Timestamp int64    `json:"timestamp"`
}

// Provider talks to one kind of sync service.
type Provider interface {
	// SyncType is the users.sync_type value this provider serves.
	SyncType() string
	// Subscriptions pulls the remote subscription changes for user.
	Subscriptions(ctx context.Context, user *models.User) (*Changes, error)
}

func normalizeSyncType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func isDisabled(t string) bool {
	t = normalizeSyncType(t)
	return t == "" || t == strings.ToLower(SyncTypeNone)
}
