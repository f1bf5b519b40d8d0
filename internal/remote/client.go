// Package remote talks to the marketplace backend. The backend owns ranking
// SQL, payment capture and ledger writes; this client only queries and
// toggles, with caller-controlled cancellation on every call.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/content"
)

// ErrConflict reports that the entity no longer exists server-side. Callers
// roll back and evict rather than retry.
var ErrConflict = errors.New("entity no longer exists")

// FeedFilters narrow the ranked feed query.
type FeedFilters struct {
	Query     string
	Category  string
	FlashSale bool
	Region    string
}

// Params serializes the filters for query strings and cache keys. Zero-value
// filters are omitted so equivalent requests serialize identically.
func (f FeedFilters) Params() map[string]string {
	params := map[string]string{
		"q":        f.Query,
		"category": f.Category,
		"region":   f.Region,
	}
	if f.FlashSale {
		params["flash_sale"] = "true"
	}
	return params
}

type Client struct {
	httpClient    *http.Client
	baseURL       string
	recentFeedURL string
	userAgent     string
	storyWindow   time.Duration
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Remote.HTTPTimeout},
		baseURL:       cfg.Remote.BaseURL,
		recentFeedURL: cfg.Remote.RecentFeedURL,
		userAgent:     cfg.Remote.UserAgent,
		storyWindow:   cfg.Ranking.StoryWindow,
	}
}

// FetchRankedFeed queries the backend's ranked feed. Malformed records in the
// response are dropped at this boundary.
func (c *Client) FetchRankedFeed(ctx context.Context, filters FeedFilters) ([]*content.Item, error) {
	query := url.Values{}
	for name, val := range filters.Params() {
		if val != "" {
			query.Set(name, val)
		}
	}

	endpoint := c.baseURL + "/v1/feed"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	return c.getItems(ctx, endpoint, 0)
}

// FetchRankedStories queries the story rail for the viewer. Stories always
// carry an expiry; the story window is enforced client-side regardless of
// what the backend sent.
func (c *Client) FetchRankedStories(ctx context.Context, viewerID, region string) ([]*content.Item, error) {
	query := url.Values{}
	query.Set("viewer", viewerID)
	if region != "" {
		query.Set("region", region)
	}

	items, err := c.getItems(ctx, c.baseURL+"/v1/stories?"+query.Encode(), c.storyWindow)
	if err != nil {
		return nil, err
	}
	return content.AsStories(items, c.storyWindow), nil
}

// ToggleEngagement sets the viewer's like/save state for an item. Idempotent
// per call; a failed call applies nothing server-side.
func (c *Client) ToggleEngagement(ctx context.Context, viewerID, itemID string, kind content.ActionKind, value bool) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid action kind %q", kind)
	}

	body, err := json.Marshal(map[string]any{
		"viewer_id": viewerID,
		"item_id":   itemID,
		"kind":      kind,
		"value":     value,
	})
	if err != nil {
		return fmt.Errorf("encoding toggle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/engagement", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating toggle request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("toggling engagement: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("toggling %s on %s: %w", kind, itemID, ErrConflict)
	case resp.StatusCode >= 400:
		return fmt.Errorf("toggling %s on %s: HTTP %d", kind, itemID, resp.StatusCode)
	}
	return nil
}

func (c *Client) getItems(ctx context.Context, endpoint string, storyWindow time.Duration) ([]*content.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching items: HTTP %d", resp.StatusCode)
	}

	items, err := content.DecodeItems(resp.Body, storyWindow)
	if err != nil {
		return nil, err
	}
	return items, nil
}
