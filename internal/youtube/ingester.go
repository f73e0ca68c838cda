// Package youtube turns a YouTube channel subscription into episode drafts
// by reading the channel's public Atom feed.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/vrsandeep/podcatch/internal/feed"
	"github.com/vrsandeep/podcatch/internal/models"
)

// DefaultBaseURL is where channel feeds are served.
const DefaultBaseURL = "https://www.youtube.com"

var channelPathRe = regexp.MustCompile(`/channel/(UC[\w-]+)`)

// Ingester reads channel feeds with gofeed.
type Ingester struct {
	BaseURL string
	client  *http.Client
	now     func() time.Time
}

// NewIngester creates an Ingester. A nil client uses http.DefaultClient.
func NewIngester(client *http.Client) *Ingester {
	if client == nil {
		client = http.DefaultClient
	}
	return &Ingester{BaseURL: DefaultBaseURL, client: client, now: time.Now}
}

// ChannelID extracts the channel id from a subscription feed URL. It accepts
// a feed URL with a channel_id parameter, a /channel/ URL or a bare id.
func ChannelID(feedURL string) (string, error) {
	raw := strings.TrimSpace(feedURL)
	if u, err := url.Parse(raw); err == nil {
		if id := u.Query().Get("channel_id"); id != "" {
			return id, nil
		}
	}
	if m := channelPathRe.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if strings.HasPrefix(raw, "UC") && !strings.ContainsAny(raw, "/?&:") {
		return raw, nil
	}
	return "", fmt.Errorf("no youtube channel id in %q", feedURL)
}

// Ingest reads the channel feed of sub and returns one draft per video
// inside the subscription's cutoff window. The audio URL of each draft is
// the video's watch URL.
func (i *Ingester) Ingest(ctx context.Context, sub models.Subscription) ([]models.EpisodeDraft, error) {
	channelID, err := ChannelID(sub.FeedURL)
	if err != nil {
		return nil, err
	}
	feedURL := strings.TrimRight(i.BaseURL, "/") + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)

	fp := gofeed.NewParser()
	fp.Client = i.client
	fp.UserAgent = feed.DefaultUserAgent
	parsed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read channel feed %s: %w", channelID, err)
	}

	var limit time.Time
	if sub.CutoffDays > 0 {
		limit = i.now().AddDate(0, 0, -sub.CutoffDays)
	}

	drafts := make([]models.EpisodeDraft, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		var published time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		} else {
			published = i.now().UTC()
		}
		if !limit.IsZero() && published.Before(limit) {
			continue
		}

		description, thumbnail := mediaGroup(item.Extensions)
		if description == "" {
			description = item.Description
		}
		if description == "" {
			description = "No description available"
		}
		if thumbnail == "" {
			thumbnail = sub.ArtworkURL
		}
		drafts = append(drafts, models.EpisodeDraft{
			SubscriptionID: sub.ID,
			Title:          title,
			Description:    description,
			AudioURL:       item.Link,
			ArtworkURL:     thumbnail,
			PubDate:        published,
		})
	}
	return drafts, nil
}

// mediaGroup reads description and thumbnail from <media:group>.
func mediaGroup(extensions ext.Extensions) (description, thumbnail string) {
	groups := extensions["media"]["group"]
	if len(groups) == 0 {
		return "", ""
	}
	group := groups[0]
	if d := group.Children["description"]; len(d) > 0 {
		description = strings.TrimSpace(d[0].Value)
	}
	if t := group.Children["thumbnail"]; len(t) > 0 {
		thumbnail = t[0].Attrs["url"]
	}
	return description, thumbnail
}
