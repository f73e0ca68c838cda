// This file defines the podcast-side data structures shared by the feed
// parser, the refresh engine and the store.

package models

import "time"

// Credentials holds optional HTTP basic auth for a protected feed.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// Present reports whether credentials were actually supplied.
func (c *Credentials) Present() bool {
	return c != nil && c.Username != ""
}

// Subscription is a user's subscription to a single podcast feed or
// YouTube channel.
type Subscription struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	Name         string       `json:"name"`
	FeedURL      string       `json:"feed_url"`
	ArtworkURL   string       `json:"artwork_url"`
	Description  string       `json:"description"`
	Author       string       `json:"author"`
	Website      string       `json:"website"`
	Categories   string       `json:"categories"`
	AutoDownload bool         `json:"auto_download"`
	Credentials  *Credentials `json:"credentials,omitempty"`
	CutoffDays   int          `json:"cutoff_days"`
	IsYouTube    bool         `json:"is_youtube"`
	EpisodeCount int          `json:"episode_count"`
	CreatedAt    time.Time    `json:"created_at"`
}

// EpisodeDraft is a normalized episode that has not been persisted yet.
type EpisodeDraft struct {
	SubscriptionID int64
	Title          string
	Description    string
	AudioURL       string
	ArtworkURL     string
	PubDate        time.Time
	Duration       int // seconds, 0 when unknown
}

// Episode is a persisted draft.
type Episode struct {
	ID               int64
	SubscriptionID   int64
	SubscriptionName string
	Title            string
	Description      string
	AudioURL         string
	ArtworkURL       string
	PubDate          time.Time
	Duration         int
	IsYouTube        bool
	CreatedAt        time.Time
}

// EpisodeView is the wire representation of an episode sent to clients.
// Field names are relied upon by existing clients and must stay stable.
type EpisodeView struct {
	PodcastName        string `json:"podcastname"`
	EpisodeTitle       string `json:"episodetitle"`
	EpisodePubDate     string `json:"episodepubdate"`
	EpisodeDescription string `json:"episodedescription"`
	EpisodeArtwork     string `json:"episodeartwork"`
	EpisodeURL         string `json:"episodeurl"`
	EpisodeDuration    int    `json:"episodeduration"`
	ListenDuration     *int   `json:"listenduration"`
	EpisodeID          int64  `json:"episodeid"`
	Completed          bool   `json:"completed"`
	Saved              bool   `json:"saved"`
	Queued             bool   `json:"queued"`
	Downloaded         bool   `json:"downloaded"`
	IsYouTube          bool   `json:"is_youtube"`
}

const episodeDateLayout = "2006-01-02T15:04:05"

// View converts a freshly inserted episode to its client representation.
// New episodes have no listening state yet.
func (e Episode) View() EpisodeView {
	return EpisodeView{
		PodcastName:        e.SubscriptionName,
		EpisodeTitle:       e.Title,
		EpisodePubDate:     e.PubDate.UTC().Format(episodeDateLayout),
		EpisodeDescription: e.Description,
		EpisodeArtwork:     e.ArtworkURL,
		EpisodeURL:         e.AudioURL,
		EpisodeDuration:    e.Duration,
		EpisodeID:          e.ID,
		IsYouTube:          e.IsYouTube,
	}
}

// SyncResult summarizes one gpodder reconciliation.
type SyncResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}
