package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/store"
	"github.com/vrsandeep/podcatch/internal/testutil"
)

func TestInsertNewEpisodesIsIdempotent(t *testing.T) {
	s := store.New(testutil.SetupTestDB(t))
	ctx := context.Background()
	user := newUser(t, s, "alice")
	sub, err := s.CreateSubscription(ctx, &models.Subscription{UserID: user.ID, Name: "Show", FeedURL: "https://example.com/feed"})
	require.NoError(t, err)

	base := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	drafts := []models.EpisodeDraft{
		{SubscriptionID: sub.ID, Title: "One", AudioURL: "https://cdn.example.com/1.mp3", PubDate: base, Duration: 60},
		{SubscriptionID: sub.ID, Title: "Two", AudioURL: "https://cdn.example.com/2.mp3", PubDate: base.Add(24 * time.Hour)},
	}

	inserted, err := s.InsertNewEpisodes(ctx, sub.ID, drafts)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.Equal(t, "One", inserted[0].Title)
	assert.Equal(t, "Show", inserted[0].SubscriptionName)
	assert.NotZero(t, inserted[0].ID)

	again, err := s.InsertNewEpisodes(ctx, sub.ID, drafts)
	require.NoError(t, err)
	assert.Empty(t, again)

	// Only the genuinely new draft comes back.
	more := append(drafts, models.EpisodeDraft{SubscriptionID: sub.ID, Title: "Three", PubDate: base.Add(48 * time.Hour)})
	inserted, err = s.InsertNewEpisodes(ctx, sub.ID, more)
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, "Three", inserted[0].Title)

	require.NoError(t, s.UpdateEpisodeCount(ctx, sub.ID))
	got, err := s.GetSubscriptionByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.EpisodeCount)

	episodes, err := s.ListEpisodes(ctx, sub.ID, 2)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "Three", episodes[0].Title)
	assert.Equal(t, "Two", episodes[1].Title)

	ep, err := s.GetEpisodeByID(ctx, episodes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/2.mp3", ep.AudioURL)
	assert.Equal(t, "Show", ep.SubscriptionName)
	assert.True(t, ep.PubDate.Equal(base.Add(24*time.Hour)))
}

func TestInsertNewEpisodesScopedBySubscription(t *testing.T) {
	s := store.New(testutil.SetupTestDB(t))
	ctx := context.Background()
	user := newUser(t, s, "alice")
	a, err := s.CreateSubscription(ctx, &models.Subscription{UserID: user.ID, Name: "A", FeedURL: "https://example.com/a"})
	require.NoError(t, err)
	b, err := s.CreateSubscription(ctx, &models.Subscription{UserID: user.ID, Name: "B", FeedURL: "https://example.com/b", IsYouTube: true})
	require.NoError(t, err)

	draft := models.EpisodeDraft{Title: "Same Title", PubDate: time.Now()}
	insA, err := s.InsertNewEpisodes(ctx, a.ID, []models.EpisodeDraft{draft})
	require.NoError(t, err)
	insB, err := s.InsertNewEpisodes(ctx, b.ID, []models.EpisodeDraft{draft})
	require.NoError(t, err)
	require.Len(t, insA, 1)
	require.Len(t, insB, 1)
	assert.False(t, insA[0].IsYouTube)
	assert.True(t, insB[0].IsYouTube)
}

func TestInsertNewEpisodesUnknownSubscription(t *testing.T) {
	s := store.New(testutil.SetupTestDB(t))
	_, err := s.InsertNewEpisodes(context.Background(), 42, []models.EpisodeDraft{{Title: "x", PubDate: time.Now()}})
	assert.Error(t, err)

	none, err := s.InsertNewEpisodes(context.Background(), 42, nil)
	assert.NoError(t, err)
	assert.Empty(t, none)
}
