package feed

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/vrsandeep/podcatch/internal/models"
)

// PodcastValues is the channel-level metadata of a feed.
type PodcastValues struct {
	Title        string   `json:"pod_title"`
	ArtworkURL   string   `json:"pod_artwork"`
	Author       string   `json:"pod_author"`
	Categories   []string `json:"categories"`
	Description  string   `json:"pod_description"`
	EpisodeCount int      `json:"pod_episode_count"`
	FeedURL      string   `json:"pod_feed_url"`
	Website      string   `json:"pod_website"`
	Explicit     bool     `json:"pod_explicit"`
}

// Inspect fetches a feed and reads its channel metadata.
func (f *Fetcher) Inspect(ctx context.Context, feedURL string, creds *models.Credentials) (*PodcastValues, error) {
	body, err := f.Fetch(ctx, feedURL, creds)
	if err != nil {
		return nil, err
	}
	return InspectDocument(body, feedURL)
}

// InspectDocument reads channel metadata from an already fetched document.
func InspectDocument(body, feedURL string) (*PodcastValues, error) {
	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	values := &PodcastValues{
		Title:        cleanText(parsed.Title, maxTitleLength),
		Description:  cleanText(parsed.Description, maxDescriptionLength),
		EpisodeCount: len(parsed.Items),
		FeedURL:      feedURL,
		Website:      parsed.Link,
		Categories:   []string{},
	}
	if parsed.Image != nil {
		values.ArtworkURL = parsed.Image.URL
	}
	if parsed.Author != nil {
		values.Author = parsed.Author.Name
	}

	if it := parsed.ITunesExt; it != nil {
		if values.ArtworkURL == "" {
			values.ArtworkURL = it.Image
		}
		if values.Author == "" {
			values.Author = it.Author
		}
		if values.Description == "" {
			values.Description = cleanText(it.Summary, maxDescriptionLength)
		}
		for _, c := range it.Categories {
			for c != nil {
				if c.Text != "" {
					values.Categories = append(values.Categories, c.Text)
				}
				c = c.Subcategory
			}
		}
		switch strings.ToLower(strings.TrimSpace(it.Explicit)) {
		case "yes", "true", "explicit":
			values.Explicit = true
		}
	}
	if len(values.Categories) == 0 {
		values.Categories = append(values.Categories, parsed.Categories...)
	}
	values.ArtworkURL = normalizeURL(values.ArtworkURL)
	return values, nil
}

// Apply copies the channel metadata onto a subscription. An explicit name
// on the subscription is kept.
func (v *PodcastValues) Apply(sub *models.Subscription) {
	if sub.Name == "" {
		sub.Name = v.Title
	}
	sub.ArtworkURL = v.ArtworkURL
	sub.Description = v.Description
	sub.Author = v.Author
	sub.Website = v.Website
	sub.Categories = strings.Join(v.Categories, ", ")
}
