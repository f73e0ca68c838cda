package gpodder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/podcatch/internal/feed"
	"github.com/vrsandeep/podcatch/internal/gpodder"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/store"
	"github.com/vrsandeep/podcatch/internal/testutil"
)

type stubInspector struct {
	titles map[string]string
}

func (s stubInspector) Inspect(_ context.Context, url string, _ *models.Credentials) (*feed.PodcastValues, error) {
	title, ok := s.titles[url]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return &feed.PodcastValues{Title: title, Author: "Someone", Categories: []string{"News", "Tech"}}, nil
}

func nextcloudServer(t *testing.T, changes gpodder.Changes) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.php/apps/gpoddersync/subscriptions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(changes)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupHook(t *testing.T, changes gpodder.Changes) (*gpodder.Hook, *store.Store, *models.User) {
	t.Helper()
	st := store.New(testutil.SetupTestDB(t))
	srv := nextcloudServer(t, changes)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "syncer", models.RoleUser)
	require.NoError(t, err)
	require.NoError(t, st.UpdateUserSync(ctx, user.ID, "nextcloud", srv.URL+"/", "secret-token"))

	inspector := stubInspector{titles: map[string]string{"https://feeds.example.com/new": "New Show"}}
	return gpodder.NewHook(st, inspector, gpodder.NewNextcloud(srv.Client())), st, user
}

func TestSyncAddsAndRemovesSubscriptions(t *testing.T) {
	hook, st, user := setupHook(t, gpodder.Changes{
		Add:    []string{"https://feeds.example.com/new", "https://feeds.example.com/kept", "https://feeds.example.com/unnamed"},
		Remove: []string{"https://feeds.example.com/old", "https://feeds.example.com/never-had"},
	})
	ctx := context.Background()
	for _, url := range []string{"https://feeds.example.com/kept", "https://feeds.example.com/old"} {
		_, err := st.CreateSubscription(ctx, &models.Subscription{UserID: user.ID, Name: url, FeedURL: url})
		require.NoError(t, err)
	}

	res, err := hook.Sync(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Added: 2, Removed: 1}, res)

	subs, err := st.GetSubscriptions(ctx, user.ID)
	require.NoError(t, err)
	byURL := map[string]models.Subscription{}
	for _, s := range subs {
		byURL[s.FeedURL] = s
	}
	assert.Len(t, byURL, 3)
	assert.NotContains(t, byURL, "https://feeds.example.com/old")
	assert.Equal(t, "New Show", byURL["https://feeds.example.com/new"].Name)
	assert.Equal(t, "News, Tech", byURL["https://feeds.example.com/new"].Categories)
	assert.Equal(t, "https://feeds.example.com/unnamed", byURL["https://feeds.example.com/unnamed"].Name)

	// Applying the same changes again is a no-op.
	res, err = hook.Sync(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{}, res)
}

func TestSyncWithoutSyncTypeIsNoop(t *testing.T) {
	st := store.New(testutil.SetupTestDB(t))
	user, err := st.CreateUser(context.Background(), "plain", models.RoleUser)
	require.NoError(t, err)
	hook := gpodder.NewHook(st, nil, gpodder.NewNextcloud(nil))

	res, err := hook.Sync(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{}, res)
	assert.Equal(t, gpodder.SyncTypeNone, hook.SyncType(context.Background(), user.ID))
}

func TestSyncUnknownProvider(t *testing.T) {
	st := store.New(testutil.SetupTestDB(t))
	ctx := context.Background()
	user, err := st.CreateUser(ctx, "odd", models.RoleUser)
	require.NoError(t, err)
	require.NoError(t, st.UpdateUserSync(ctx, user.ID, "carrier-pigeon", "https://x", "t"))

	_, err = gpodder.NewHook(st, nil).Sync(ctx, user.ID)
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestSyncReportsProviderFailure(t *testing.T) {
	hook, st, user := setupHook(t, gpodder.Changes{})
	ctx := context.Background()
	require.NoError(t, st.UpdateUserSync(ctx, user.ID, "nextcloud", "http://127.0.0.1:1", "secret-token"))

	_, err := hook.Sync(ctx, user.ID)
	assert.Error(t, err)
}

func TestSyncAllCountsFailures(t *testing.T) {
	hook, st, _ := setupHook(t, gpodder.Changes{Add: []string{"https://feeds.example.com/new"}})
	ctx := context.Background()

	broken, err := st.CreateUser(ctx, "broken", models.RoleUser)
	require.NoError(t, err)
	require.NoError(t, st.UpdateUserSync(ctx, broken.ID, "nextcloud", "http://127.0.0.1:1", "nope"))
	_, err = st.CreateUser(ctx, "unsynced", models.RoleUser)
	require.NoError(t, err)

	res, err := hook.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Users)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Added)
}
