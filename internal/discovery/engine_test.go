package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/mutate"
	"github.com/vitrinapp/vitrin/internal/player"
	"github.com/vitrinapp/vitrin/internal/remote"
)

// fakeBackend is a switchable marketplace backend plus the public RSS feed.
type fakeBackend struct {
	mu           sync.Mutex
	feedHits     int
	storyHits    int
	feedDown     bool
	engageStatus int
	stories      []map[string]any
}

func feedItem(id, seller string, follows bool) map[string]any {
	return map[string]any{
		"id":         id,
		"seller_id":  seller,
		"media_type": "image",
		"media_refs": []string{"https://cdn.test/" + id + ".jpg"},
		"title":      "Listing " + id,
		"category":   "home",
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"ranking":    map[string]any{"follows_seller": follows},
		"engagement": map[string]any{"like_count": 3},
	}
}

func (b *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		switch r.URL.Path {
		case "/v1/feed":
			b.feedHits++
			if b.feedDown {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode([]map[string]any{
				feedItem("itm-1", "seller-1", true),
				feedItem("itm-2", "seller-2", false),
			})
		case "/v1/stories":
			b.storyHits++
			if b.feedDown {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(b.stories)
		case "/v1/engagement":
			status := b.engageStatus
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
		case "/feeds/latest.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel>
<item><title>Recent listing</title><guid>recent-1</guid>
<enclosure url="https://cdn.test/recent-1.jpg" type="image/jpeg" length="1"/>
</item></channel></rss>`))
		default:
			http.NotFound(w, r)
		}
	})
}

func testEngineCfg(t *testing.T, backend *fakeBackend, adjust func(*config.Config)) *Engine {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.Remote.BaseURL = server.URL
	cfg.Remote.RecentFeedURL = server.URL + "/feeds/latest.xml"
	cfg.Cache.FeedTTL = time.Minute
	cfg.Cache.StoriesTTL = time.Minute
	cfg.Cache.SellerTTL = time.Minute
	if adjust != nil {
		adjust(cfg)
	}

	e, err := NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func testEngine(t *testing.T, backend *fakeBackend) *Engine {
	return testEngineCfg(t, backend, nil)
}

func remoteFilters(category string) remote.FeedFilters {
	return remote.FeedFilters{Category: category}
}

func storyJSON(id, seller string, createdAt time.Time) map[string]any {
	return map[string]any{
		"id":         id,
		"seller_id":  seller,
		"media_type": "image",
		"media_refs": []string{"https://cdn.test/" + id + ".jpg"},
		"created_at": createdAt.UTC().Format(time.RFC3339),
	}
}

func TestFeedCachesWhileFresh(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)
	ctx := context.Background()

	first, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.feedHits, "fresh cache entry must not refetch")
}

func TestFeedRanksFollowedFirst(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)

	items, err := e.Feed(context.Background(), remoteFilters(""))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "itm-1", items[0].ID, "followed seller outranks the rest")
}

func TestFeedServesStaleCacheWhenBackendDown(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngineCfg(t, backend, func(cfg *config.Config) {
		cfg.Cache.FeedTTL = 20 * time.Millisecond
	})
	ctx := context.Background()

	first, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)

	backend.mu.Lock()
	backend.feedDown = true
	backend.mu.Unlock()

	time.Sleep(50 * time.Millisecond) // let the TTL lapse

	again, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)
	assert.Equal(t, first, again, "stale result beats an error")
}

func TestFeedFallsBackToRecentListings(t *testing.T) {
	backend := &fakeBackend{feedDown: true}
	e := testEngine(t, backend)

	items, err := e.Feed(context.Background(), remoteFilters(""))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Recent listing", items[0].Title)
	assert.False(t, items[0].Rank.FollowsSeller, "fallback items carry no ranking attributes")
}

func TestFeedRejectsUnknownCategory(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)

	_, err := e.Feed(context.Background(), remoteFilters("submarines"))
	assert.Error(t, err)
	assert.Equal(t, 0, backend.feedHits, "unknown category fails before any request")
}

func TestFeedResolvesCategoryAlias(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)
	ctx := context.Background()

	_, err := e.Feed(ctx, remoteFilters("decor"))
	require.NoError(t, err)
	_, err = e.Feed(ctx, remoteFilters("home"))
	require.NoError(t, err)

	assert.Equal(t, 1, backend.feedHits, "alias and slug share one cache slot")
}

func TestStoriesFilterExpired(t *testing.T) {
	backend := &fakeBackend{stories: []map[string]any{
		storyJSON("story-live", "seller-1", time.Now().Add(-time.Hour)),
		storyJSON("story-old", "seller-1", time.Now().Add(-13*time.Hour)),
	}}
	e := testEngine(t, backend)

	items, err := e.Stories(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "story-live", items[0].ID)
}

func TestStoryQueueFiltersBySeller(t *testing.T) {
	backend := &fakeBackend{stories: []map[string]any{
		storyJSON("s1-a", "seller-1", time.Now().Add(-time.Hour)),
		storyJSON("s2-a", "seller-2", time.Now().Add(-time.Hour)),
		storyJSON("s1-b", "seller-1", time.Now().Add(-2*time.Hour)),
	}}
	e := testEngine(t, backend)

	queue, err := e.StoryQueue(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Len(t, queue, 2)
	for _, it := range queue {
		assert.Equal(t, "seller-1", it.SellerID)
	}
}

func TestOpenStoriesDeepLink(t *testing.T) {
	backend := &fakeBackend{stories: []map[string]any{
		storyJSON("s1-a", "seller-1", time.Now().Add(-time.Hour)),
		storyJSON("s1-b", "seller-1", time.Now().Add(-2*time.Hour)),
	}}
	e := testEngine(t, backend)

	var mu sync.Mutex
	var seen []player.State
	ctrl, err := e.OpenStories(context.Background(), "seller-1", "s1-b", func(ch player.Change) {
		mu.Lock()
		seen = append(seen, ch.State)
		mu.Unlock()
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Exit)

	assert.Equal(t, player.StatePlaying, ctrl.State())
	require.NotNil(t, ctrl.Current())
	assert.Equal(t, "s1-b", ctrl.Current().ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []player.State{player.StateLoading, player.StatePlaying}, seen)
}

func TestOpenStoriesNoLiveStories(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)

	_, err := e.OpenStories(context.Background(), "seller-9", "", nil)
	assert.Error(t, err)
}

func TestToggleLikeOptimisticAndSettled(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)
	ctx := context.Background()

	_, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)

	require.NoError(t, e.ToggleLike(ctx, "itm-1"))
	e.Wait()

	items, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)
	for _, it := range items {
		if it.ID == "itm-1" {
			assert.True(t, it.Viewer.Liked)
			assert.Equal(t, 4, it.Engage.LikeCount)
		}
	}
}

func TestToggleLikeRollsBackOnFailure(t *testing.T) {
	backend := &fakeBackend{engageStatus: http.StatusBadGateway}
	e := testEngine(t, backend)
	ctx := context.Background()

	notices := make(chan mutate.Notice, 1)
	e.OnNotice = func(n mutate.Notice) { notices <- n }

	_, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)

	require.NoError(t, e.ToggleLike(ctx, "itm-1"))
	e.Wait()
	n := <-notices
	assert.False(t, n.Evicted)

	items, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)
	for _, it := range items {
		if it.ID == "itm-1" {
			assert.False(t, it.Viewer.Liked)
			assert.Equal(t, 3, it.Engage.LikeCount)
		}
	}
}

func TestToggleConflictEvictsEverywhere(t *testing.T) {
	backend := &fakeBackend{engageStatus: http.StatusGone}
	e := testEngine(t, backend)
	ctx := context.Background()

	notices := make(chan mutate.Notice, 1)
	e.OnNotice = func(n mutate.Notice) { notices <- n }

	_, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)

	require.NoError(t, e.ToggleSave(ctx, "itm-2"))
	e.Wait()
	n := <-notices
	assert.True(t, n.Evicted)

	items, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)
	for _, it := range items {
		assert.NotEqual(t, "itm-2", it.ID)
	}

	hits, err := e.SearchCached("listing", 10)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "itm-2", h.ItemID, "evicted entity leaves the search index too")
	}
}

func TestSearchCachedFindsFetchedItems(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)

	_, err := e.Feed(context.Background(), remoteFilters(""))
	require.NoError(t, err)

	hits, err := e.SearchCached("listing", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestInvalidateAllForcesRefetch(t *testing.T) {
	backend := &fakeBackend{}
	e := testEngine(t, backend)
	ctx := context.Background()

	_, err := e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)

	dropped := e.InvalidateAll()
	assert.Equal(t, 1, dropped)

	_, err = e.Feed(ctx, remoteFilters(""))
	require.NoError(t, err)
	assert.Equal(t, 2, backend.feedHits)
}
