// Package discovery is the engine behind every browsing surface: it owns the
// query cache, the remote client, client-side ranking, optimistic engagement
// toggles, the offline search index and story playback. Presentation code
// talks to this facade only.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/vitrinapp/vitrin/internal/cache"
	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/debuglog"
	"github.com/vitrinapp/vitrin/internal/mutate"
	"github.com/vitrinapp/vitrin/internal/player"
	"github.com/vitrinapp/vitrin/internal/prefetch"
	"github.com/vitrinapp/vitrin/internal/rank"
	"github.com/vitrinapp/vitrin/internal/remote"
	"github.com/vitrinapp/vitrin/internal/search"
)

// Cache key operations. Every cached view of the same item shares these
// namespaces, so predicate invalidation can hit all of them.
const (
	opFeed    = "feed"
	opRecent  = "recent"
	opStories = "stories"
)

type Engine struct {
	// OnNotice, when set, receives rollback/eviction notices from failed
	// toggles. Called from a completion goroutine.
	OnNotice func(mutate.Notice)

	cfg        *config.Config
	store      *cache.Store
	client     *remote.Client
	ranker     *rank.Engine
	coord      *mutate.Coordinator
	index      *search.Index
	media      *prefetch.Cache
	categories *content.CategoryRegistry
	viewer     rank.ViewerContext
	now        func() time.Time
}

func NewEngine(cfg *config.Config) (*Engine, error) {
	categories, err := content.NewCategoryRegistry()
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	index, err := search.NewIndex(cfg.Search.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	var media *prefetch.Cache
	if cfg.Prefetch.Path != "" {
		media, err = prefetch.NewCache(cfg.Prefetch.Path, cfg.Prefetch.HTTPTimeout)
		if err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("opening prefetch cache: %w", err)
		}
	}

	e := &Engine{
		cfg:        cfg,
		store:      cache.NewStore(),
		client:     remote.NewClient(cfg),
		ranker:     rank.NewEngine(rank.WeightsFromConfig(cfg.Ranking)),
		index:      index,
		media:      media,
		categories: categories,
		viewer:     rank.ViewerContext{ID: cfg.Viewer.ID, Region: cfg.Viewer.Region},
		now:        time.Now,
	}
	e.coord = mutate.NewCoordinator(e.store, func(ctx context.Context, itemID string, kind content.ActionKind, value bool) error {
		return e.client.ToggleEngagement(ctx, cfg.Viewer.ID, itemID, kind, value)
	})
	e.coord.OnNotice = e.onNotice
	return e, nil
}

// Close waits for in-flight toggles and releases the index and media cache.
func (e *Engine) Close() error {
	e.coord.Wait()
	err := e.index.Close()
	if e.media != nil {
		if mErr := e.media.Close(); err == nil {
			err = mErr
		}
	}
	return err
}

// Categories exposes the registry for building filter menus.
func (e *Engine) Categories() *content.CategoryRegistry {
	return e.categories
}

// Feed returns the ranked home feed for the filters, served from cache while
// fresh. On backend failure it degrades to the stale cached result, then to
// the recent-listings feed; an empty hard error reaches the caller only when
// every path is exhausted.
func (e *Engine) Feed(ctx context.Context, filters remote.FeedFilters) ([]*content.Item, error) {
	slug, err := e.categories.Resolve(filters.Category)
	if err != nil {
		return nil, err
	}
	filters.Category = slug

	key := cache.NewKey(opFeed, filters.Params())
	now := e.now()
	if items, ok := e.store.Items(key); ok && !e.store.IsStale(key, now) {
		return items, nil
	}

	fetched, err := e.client.FetchRankedFeed(ctx, filters)
	if err != nil {
		debuglog.Warnf("discovery: ranked feed failed, degrading: %v", err)
		if items, ok := e.store.Items(key); ok {
			return items, nil
		}
		return e.recentFallback(ctx)
	}

	ranked := e.ranker.Rank(fetched, e.viewer, now)
	e.store.Set(key, ranked, e.cfg.Cache.FeedTTL)
	e.indexItems(ranked)
	return ranked, nil
}

// recentFallback serves the marketplace's public newest-listings feed in
// publication order. Last resort before surfacing an error.
func (e *Engine) recentFallback(ctx context.Context) ([]*content.Item, error) {
	key := cache.NewKey(opRecent, nil)
	if items, ok := e.store.Items(key); ok && !e.store.IsStale(key, e.now()) {
		return items, nil
	}

	items, err := e.client.FetchRecentItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("feed unavailable: %w", err)
	}
	e.store.Set(key, items, e.cfg.Cache.FeedTTL)
	e.indexItems(items)
	return items, nil
}

// Stories returns the viewer's ranked story rail. Entries that expired since
// caching are filtered on every read.
func (e *Engine) Stories(ctx context.Context) ([]*content.Item, error) {
	key := cache.NewKey(opStories, nil)
	now := e.now()
	if items, ok := e.store.Items(key); ok && !e.store.IsStale(key, now) {
		return dropExpired(items, now), nil
	}

	fetched, err := e.client.FetchRankedStories(ctx, e.cfg.Viewer.ID, e.cfg.Viewer.Region)
	if err != nil {
		if items, ok := e.store.Items(key); ok {
			debuglog.Warnf("discovery: story fetch failed, serving stale rail: %v", err)
			return dropExpired(items, now), nil
		}
		return nil, fmt.Errorf("fetching stories: %w", err)
	}

	ranked := e.ranker.Rank(fetched, e.viewer, now)
	e.store.Set(key, ranked, e.cfg.Cache.StoriesTTL)
	e.indexItems(ranked)
	return dropExpired(ranked, now), nil
}

// StoryQueue returns one seller's live stories in rail order, cached as its
// own view so engagement patches reach it.
func (e *Engine) StoryQueue(ctx context.Context, sellerID string) ([]*content.Item, error) {
	rail, err := e.Stories(ctx)
	if err != nil {
		return nil, err
	}

	queue := make([]*content.Item, 0, len(rail))
	for _, it := range rail {
		if it.SellerID == sellerID {
			queue = append(queue, it)
		}
	}

	key := cache.NewKey(opStories, map[string]string{"seller": sellerID})
	e.store.Set(key, queue, e.cfg.Cache.SellerTTL)
	return queue, nil
}

// OpenStories builds and starts a playback controller over the seller's
// queue. startItemID deep-links into the queue; an unknown or empty ID starts
// at the beginning. onChange, when non-nil, observes every transition
// including the initial Loading.
func (e *Engine) OpenStories(ctx context.Context, sellerID, startItemID string, onChange func(player.Change)) (*player.Controller, error) {
	queue, err := e.StoryQueue(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, fmt.Errorf("no live stories for seller %s", sellerID)
	}

	start := 0
	for i, it := range queue {
		if it.ID == startItemID {
			start = i
			break
		}
	}

	ctrl := player.NewController(e.cfg.Playback.ItemDuration)
	ctrl.OnChange = onChange
	if e.media != nil {
		media := e.media
		ctrl.Prefetch = func(it *content.Item) {
			go media.WarmItem(context.Background(), it)
		}
	}

	if err := ctrl.Start(queue, start); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// ToggleLike flips the viewer's like on the item optimistically.
func (e *Engine) ToggleLike(ctx context.Context, itemID string) error {
	return e.coord.Toggle(ctx, itemID, content.ActionLike)
}

// ToggleSave flips the viewer's save on the item optimistically.
func (e *Engine) ToggleSave(ctx context.Context, itemID string) error {
	return e.coord.Toggle(ctx, itemID, content.ActionSave)
}

// SearchCached queries the offline index over everything the engine has seen.
func (e *Engine) SearchCached(query string, limit int) ([]*search.Hit, error) {
	return e.index.Search(query, limit)
}

// InvalidateAll drops every cached view; the next read refetches.
func (e *Engine) InvalidateAll() int {
	return e.store.Invalidate(func(cache.Key) bool { return true })
}

// InvalidateFeeds drops feed views only, keeping the story rail.
func (e *Engine) InvalidateFeeds() int {
	return e.store.Invalidate(func(k cache.Key) bool {
		return k.Op == opFeed || k.Op == opRecent
	})
}

// Wait blocks until every dispatched toggle completion has settled.
func (e *Engine) Wait() {
	e.coord.Wait()
}

func (e *Engine) onNotice(n mutate.Notice) {
	if n.Evicted {
		if err := e.index.Remove(n.ItemID); err != nil {
			debuglog.Debugf("discovery: removing %s from index: %v", n.ItemID, err)
		}
	}
	if e.OnNotice != nil {
		e.OnNotice(n)
	}
}

func (e *Engine) indexItems(items []*content.Item) {
	if err := e.index.IndexItems(items); err != nil {
		debuglog.Warnf("discovery: indexing %d items: %v", len(items), err)
	}
}

func dropExpired(items []*content.Item, now time.Time) []*content.Item {
	out := make([]*content.Item, 0, len(items))
	for _, it := range items {
		if !it.Expired(now) {
			out = append(out, it)
		}
	}
	return out
}
