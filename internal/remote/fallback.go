package remote

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/debuglog"
)

// FetchRecentItems is the degraded path: when the ranked feed query fails,
// the marketplace's public recent-listings RSS feed still gives the viewer
// something to browse. Items carry no ranking attributes, so they come back
// in publication order.
func (c *Client) FetchRecentItems(ctx context.Context) ([]*content.Item, error) {
	if c.recentFeedURL == "" {
		return nil, fmt.Errorf("no recent-listings feed configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recentFeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching recent listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching recent listings: HTTP %d", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing recent listings: %w", err)
	}

	items := make([]*content.Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		it := entryToItem(entry)
		if err := it.Validate(); err != nil {
			debuglog.Debugf("recent listings: skipping entry: %v", err)
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func entryToItem(entry *gofeed.Item) *content.Item {
	it := &content.Item{
		ID:       listingID(entry),
		SellerID: sellerFromEntry(entry),
		Title:    entry.Title,
		Caption:  entry.Description,
	}

	if entry.PublishedParsed != nil {
		it.CreatedAt = *entry.PublishedParsed
	}

	for _, enc := range entry.Enclosures {
		if enc.URL == "" {
			continue
		}
		it.MediaRefs = append(it.MediaRefs, enc.URL)
		if it.MediaType == content.MediaUnknown {
			if strings.HasPrefix(enc.Type, "video/") {
				it.MediaType = content.MediaVideo
			} else {
				it.MediaType = content.MediaImage
			}
		}
	}
	if len(it.MediaRefs) == 0 && entry.Image != nil && entry.Image.URL != "" {
		it.MediaRefs = append(it.MediaRefs, entry.Image.URL)
		it.MediaType = content.MediaImage
	}

	return it
}

func listingID(entry *gofeed.Item) string {
	src := entry.GUID
	if src == "" {
		src = entry.Link
	}
	if src == "" {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(src)))
}

func sellerFromEntry(entry *gofeed.Item) string {
	if entry.Author != nil && entry.Author.Name != "" {
		return entry.Author.Name
	}
	return "unknown"
}
