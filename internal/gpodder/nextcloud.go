package gpodder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vrsandeep/podcatch/internal/models"
)

const nextcloudSubscriptionsPath = "/index.php/apps/gpoddersync/subscriptions"

// Nextcloud pulls subscriptions from the Nextcloud gpoddersync app.
type Nextcloud struct {
	client *http.Client
}

// NewNextcloud creates the provider. A nil client uses http.DefaultClient.
func NewNextcloud(client *http.Client) *Nextcloud {
	if client == nil {
		client = http.DefaultClient
	}
	return &Nextcloud{client: client}
}

func (n *Nextcloud) SyncType() string { return "nextcloud" }

func (n *Nextcloud) Subscriptions(ctx context.Context, user *models.User) (*Changes, error) {
	if user.SyncURL == "" {
		return nil, fmt.Errorf("user %d has no nextcloud url configured", user.ID)
	}
	endpoint := strings.TrimRight(user.SyncURL, "/") + nextcloudSubscriptionsPath + "?since=0"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+user.SyncToken)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nextcloud request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nextcloud returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var changes Changes
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return nil, fmt.Errorf("could not decode nextcloud subscriptions: %w", err)
	}
	return &changes, nil
}
