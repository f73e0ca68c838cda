package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/podcatch/internal/feed"
	"github.com/vrsandeep/podcatch/internal/models"
)

// memStore is an in-memory FeedStore keyed like the real one.
type memStore struct {
	mu        sync.Mutex
	subs      map[int64][]models.Subscription
	titles    map[int64]map[string]bool
	counts    map[int64]int
	nextID    int64
	insertErr error
	countErr  error
	panicOn   int64
}

func newMemStore() *memStore {
	return &memStore{
		subs:   make(map[int64][]models.Subscription),
		titles: make(map[int64]map[string]bool),
		counts: make(map[int64]int),
	}
}

func (s *memStore) addSub(sub models.Subscription, knownTitles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UserID] = append(s.subs[sub.UserID], sub)
	s.titles[sub.ID] = make(map[string]bool)
	for _, title := range knownTitles {
		s.titles[sub.ID][title] = true
	}
}

func (s *memStore) GetSubscriptions(_ context.Context, userID int64) ([]models.Subscription, error) {
	if s.panicOn == userID {
		panic("store exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Subscription(nil), s.subs[userID]...), nil
}

func (s *memStore) InsertNewEpisodes(_ context.Context, subID int64, drafts []models.EpisodeDraft) ([]models.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	var out []models.Episode
	for _, d := range drafts {
		if s.titles[subID][d.Title] {
			continue
		}
		s.titles[subID][d.Title] = true
		s.nextID++
		out = append(out, models.Episode{ID: s.nextID, SubscriptionID: subID, Title: d.Title, AudioURL: d.AudioURL, PubDate: d.PubDate})
	}
	return out, nil
}

func (s *memStore) UpdateEpisodeCount(_ context.Context, subID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return s.countErr
	}
	s.counts[subID] = len(s.titles[subID])
	return nil
}

func (s *memStore) ListUserIDsWithSubscriptions(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id := range s.subs {
		ids = append(ids, id)
	}
	return ids, nil
}

// stubFetcher serves documents by URL. A non-nil gate blocks every fetch
// until it is closed.
type stubFetcher struct {
	docs map[string]string
	gate chan struct{}
}

func (f *stubFetcher) Fetch(_ context.Context, url string, _ *models.Credentials) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	doc, ok := f.docs[url]
	if !ok {
		return "", &feed.FetchError{Kind: feed.Unreachable, URL: url, Err: errors.New("connection refused")}
	}
	return doc, nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []int64
	yt   []bool
}

func (d *recordingDispatcher) Enqueue(_ context.Context, episodeID, _ int64, isYouTube bool) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, episodeID)
	d.yt = append(d.yt, isYouTube)
	return fmt.Sprintf("job-%d", episodeID), nil
}

type stubSync struct {
	syncType string
	result   models.SyncResult
	err      error
	calls    int
}

func (s *stubSync) SyncType(context.Context, int64) string { return s.syncType }

func (s *stubSync) Sync(context.Context, int64) (models.SyncResult, error) {
	s.calls++
	return s.result, s.err
}

func feedDoc(titles ...string) string {
	doc := `<rss><channel>`
	for _, title := range titles {
		doc += fmt.Sprintf(`<item><title>%s</title><enclosure url="https://cdn.example.com/%s.mp3"/>
			<pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate></item>`, title, title)
	}
	return doc + `</channel></rss>`
}

func drain(t *testing.T, s *Stream) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream was not closed in time")
			return nil
		}
	}
}

func newTestManager(st *memStore, f Fetcher, d Dispatcher) *Manager {
	return NewManager(Deps{Store: st, Fetcher: f, Parser: feed.NewParser(), Dispatcher: d}, Config{StreamBuffer: 64})
}

func TestStartRefresh_EndToEnd(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 10, UserID: 1, Name: "Show", FeedURL: "https://show.example.com/rss", AutoDownload: true},
		"ep1", "ep2")
	fetcher := &stubFetcher{docs: map[string]string{"https://show.example.com/rss": feedDoc("ep1", "ep2", "ep3")}}
	dispatcher := &recordingDispatcher{}
	m := newTestManager(st, fetcher, dispatcher)

	stream, err := m.StartRefresh(context.Background(), 1, Options{})
	require.NoError(t, err)
	events := drain(t, stream)

	require.Len(t, events, 4)
	assert.Equal(t, StatusUpdate{Current: 0, Total: 1, Label: "Starting podcast refresh..."}, events[0])
	assert.Equal(t, StatusUpdate{Current: 1, Total: 1, Label: "Show"}, events[1])
	newEp, ok := events[2].(NewEpisode)
	require.True(t, ok, "expected NewEpisode, got %T", events[2])
	assert.Equal(t, "ep3", newEp.Episode.Title)
	assert.Equal(t, StatusUpdate{Current: 1, Total: 1, Label: "Refresh completed: 1/1 successful, 1 new episodes"}, events[3])

	assert.Equal(t, []int64{newEp.Episode.ID}, dispatcher.jobs)
	assert.Equal(t, []bool{false}, dispatcher.yt)
	assert.Equal(t, 3, st.counts[10])
	assert.False(t, m.IsRunning(1))
}

func TestStartRefresh_SingleFlight(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 1, UserID: 7, Name: "Slow", FeedURL: "https://slow.example.com/rss"})
	gate := make(chan struct{})
	fetcher := &stubFetcher{docs: map[string]string{"https://slow.example.com/rss": feedDoc("a")}, gate: gate}
	m := newTestManager(st, fetcher, nil)

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	var streams []*Stream
	var conflicts int
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.StartRefresh(context.Background(), 7, Options{})
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrAlreadyRunning) {
				conflicts++
				return
			}
			assert.NoError(t, err)
			streams = append(streams, s)
		}()
	}
	wg.Wait()

	require.Len(t, streams, 1)
	assert.Equal(t, n-1, conflicts)
	assert.True(t, m.IsRunning(7))

	close(gate)
	drain(t, streams[0])
	assert.False(t, m.IsRunning(7))

	next, err := m.StartRefresh(context.Background(), 7, Options{})
	require.NoError(t, err, "a new run is allowed once the previous one completed")
	drain(t, next)
}

func TestStartRefresh_DifferentUsersRunInParallel(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 1, UserID: 1, FeedURL: "https://a.example.com"})
	st.addSub(models.Subscription{ID: 2, UserID: 2, FeedURL: "https://b.example.com"})
	gate := make(chan struct{})
	m := newTestManager(st, &stubFetcher{docs: map[string]string{}, gate: gate}, nil)

	s1, err := m.StartRefresh(context.Background(), 1, Options{})
	require.NoError(t, err)
	s2, err := m.StartRefresh(context.Background(), 2, Options{})
	require.NoError(t, err)
	assert.Len(t, m.Running(), 2)

	close(gate)
	drain(t, s1)
	drain(t, s2)
}

func TestRefreshUser_FaultIsolation(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 1, UserID: 3, Name: "Good A", FeedURL: "https://a.example.com/rss"})
	st.addSub(models.Subscription{ID: 2, UserID: 3, Name: "Broken", FeedURL: "https://down.example.com/rss"})
	st.addSub(models.Subscription{ID: 3, UserID: 3, Name: "Good B", FeedURL: "https://b.example.com/rss"})
	fetcher := &stubFetcher{docs: map[string]string{
		"https://a.example.com/rss": feedDoc("x"),
		"https://b.example.com/rss": feedDoc("y", "z"),
	}}
	m := newTestManager(st, fetcher, nil)

	summary, err := m.RefreshUser(context.Background(), 3, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successes)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, 3, summary.NewEpisodes)
}

func TestRefreshUser_Idempotent(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 1, UserID: 1, FeedURL: "https://a.example.com/rss"})
	m := newTestManager(st, &stubFetcher{docs: map[string]string{"https://a.example.com/rss": feedDoc("a", "b")}}, nil)

	first, err := m.RefreshUser(context.Background(), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewEpisodes)

	second, err := m.RefreshUser(context.Background(), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewEpisodes)
	assert.Equal(t, 1, second.Successes)
}

func TestStartRefresh_PersistenceErrorEndsWithError(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 1, UserID: 1, Name: "A", FeedURL: "https://a.example.com/rss"})
	st.insertErr = errors.New("disk full")
	m := newTestManager(st, &stubFetcher{docs: map[string]string{"https://a.example.com/rss": feedDoc("a")}}, nil)

	stream, err := m.StartRefresh(context.Background(), 1, Options{})
	require.NoError(t, err)
	events := drain(t, stream)

	require.NotEmpty(t, events)
	last, ok := events[len(events)-1].(ErrorEvent)
	require.True(t, ok, "expected ErrorEvent last, got %T", events[len(events)-1])
	assert.Contains(t, last.Message, "disk full")
	assert.False(t, m.IsRunning(1))

	_, err = m.RefreshUser(context.Background(), 1, Options{})
	var persistErr *PersistenceError
	assert.ErrorAs(t, err, &persistErr)
}

func TestStartRefresh_CountFailureStillDispatchesInserted(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 4, UserID: 2, Name: "Show", FeedURL: "https://show.example.com/rss", AutoDownload: true})
	st.countErr = errors.New("database is locked")
	dispatcher := &recordingDispatcher{}
	m := newTestManager(st, &stubFetcher{docs: map[string]string{"https://show.example.com/rss": feedDoc("fresh")}}, dispatcher)

	stream, err := m.StartRefresh(context.Background(), 2, Options{})
	require.NoError(t, err)
	events := drain(t, stream)

	var announced []string
	for _, ev := range events {
		if ne, ok := ev.(NewEpisode); ok {
			announced = append(announced, ne.Episode.Title)
		}
	}
	assert.Equal(t, []string{"fresh"}, announced)
	last, ok := events[len(events)-1].(ErrorEvent)
	require.True(t, ok, "expected ErrorEvent last, got %T", events[len(events)-1])
	assert.Contains(t, last.Message, "database is locked")

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	require.Len(t, dispatcher.jobs, 1)
	assert.NotZero(t, dispatcher.jobs[0])
}

func TestStartRefresh_PanicReleasesLock(t *testing.T) {
	st := newMemStore()
	st.panicOn = 9
	m := newTestManager(st, &stubFetcher{}, nil)

	stream, err := m.StartRefresh(context.Background(), 9, Options{})
	require.NoError(t, err)
	events := drain(t, stream)

	require.Len(t, events, 1)
	assert.IsType(t, ErrorEvent{}, events[0])
	assert.False(t, m.IsRunning(9))
}

func TestStartRefresh_SyncFirst(t *testing.T) {
	st := newMemStore()
	hook := &stubSync{syncType: "nextcloud", result: models.SyncResult{Added: 2}}
	m := NewManager(Deps{Store: st, Fetcher: &stubFetcher{}, Parser: feed.NewParser(), Sync: hook}, Config{})

	stream, err := m.StartRefresh(context.Background(), 1, Options{SyncFirst: true})
	require.NoError(t, err)
	events := drain(t, stream)

	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "Syncing with gPodder (nextcloud)...", events[0].(StatusUpdate).Label)
	assert.Equal(t, "gPodder sync completed: 2 added, 0 removed", events[1].(StatusUpdate).Label)
	assert.Equal(t, 1, hook.calls)

	hook.err = errors.New("token expired")
	stream, err = m.StartRefresh(context.Background(), 1, Options{SyncFirst: true})
	require.NoError(t, err)
	events = drain(t, stream)
	assert.Equal(t, "gPodder sync failed: token expired", events[1].(StatusUpdate).Label)
	_, isErr := events[len(events)-1].(ErrorEvent)
	assert.False(t, isErr, "sync failure must not abort the run")
}

func TestRefreshAll_SkipsBusyUsers(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 1, UserID: 1, FeedURL: "https://a.example.com/rss"})
	st.addSub(models.Subscription{ID: 2, UserID: 2, FeedURL: "https://b.example.com/rss"})
	m := newTestManager(st, &stubFetcher{docs: map[string]string{
		"https://a.example.com/rss": feedDoc("a"),
		"https://b.example.com/rss": feedDoc("b"),
	}}, nil)

	busy, err := m.acquire(2, nil)
	require.NoError(t, err)
	defer m.release(2, busy)

	var calls int
	fleet, err := m.RefreshAll(context.Background(), func(done, total int) {
		calls++
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fleet.UsersRefreshed)
	assert.Equal(t, 1, fleet.UsersSkipped)
	assert.Equal(t, 0, fleet.UsersFailed)
	assert.Equal(t, 1, fleet.TotalNewEpisodes)
	assert.Equal(t, 2, calls)
}

func TestDispatch_YouTubeDetection(t *testing.T) {
	st := newMemStore()
	st.addSub(models.Subscription{ID: 1, UserID: 1, FeedURL: "https://a.example.com/rss", AutoDownload: true})
	doc := `<rss><channel><item><title>Video</title><link>https://www.youtube.com/watch?v=abc</link></item></channel></rss>`
	dispatcher := &recordingDispatcher{}
	m := newTestManager(st, &stubFetcher{docs: map[string]string{"https://a.example.com/rss": doc}}, dispatcher)

	_, err := m.RefreshUser(context.Background(), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, dispatcher.yt)
}

func TestApplyCutoff(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	drafts := []models.EpisodeDraft{
		{Title: "old", PubDate: now.AddDate(0, 0, -30)},
		{Title: "new", PubDate: now.AddDate(0, 0, -2)},
	}
	assert.Len(t, applyCutoff(drafts, 0, now), 2)
	kept := applyCutoff(drafts, 7, now)
	require.Len(t, kept, 1)
	assert.Equal(t, "new", kept[0].Title)
}
