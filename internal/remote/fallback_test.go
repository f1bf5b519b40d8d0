package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/content"
)

const recentListingsRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>vitrin — newest listings</title>
<item>
  <title>Hand-thrown ceramic vase</title>
  <guid>listing-101</guid>
  <link>https://vitrin.test/listings/101</link>
  <description>Stoneware, 24cm</description>
  <author>atelier-norte</author>
  <pubDate>Thu, 20 Aug 2026 09:00:00 GMT</pubDate>
  <enclosure url="https://cdn.vitrin.test/101.jpg" type="image/jpeg" length="1024"/>
</item>
<item>
  <title>Workshop tour</title>
  <guid>listing-102</guid>
  <link>https://vitrin.test/listings/102</link>
  <pubDate>Thu, 20 Aug 2026 08:00:00 GMT</pubDate>
  <enclosure url="https://cdn.vitrin.test/102.mp4" type="video/mp4" length="2048"/>
</item>
<item>
  <title>Listing without media</title>
  <guid>listing-103</guid>
  <link>https://vitrin.test/listings/103</link>
</item>
</channel>
</rss>`

func TestFetchRecentItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feeds/latest.xml", r.URL.Path)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(recentListingsRSS))
	}))
	defer server.Close()

	cfg := config.TestConfig()
	cfg.Remote.BaseURL = server.URL
	cfg.Remote.RecentFeedURL = server.URL + "/feeds/latest.xml"
	client := NewClient(cfg)

	items, err := client.FetchRecentItems(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2, "entries without media are skipped")

	vase := items[0]
	assert.Equal(t, "Hand-thrown ceramic vase", vase.Title)
	assert.Equal(t, content.MediaImage, vase.MediaType)
	assert.Equal(t, []string{"https://cdn.vitrin.test/101.jpg"}, vase.MediaRefs)
	assert.NotEmpty(t, vase.ID)
	assert.False(t, vase.CreatedAt.IsZero())

	tour := items[1]
	assert.Equal(t, content.MediaVideo, tour.MediaType)

	// No ranking attributes on fallback items
	assert.False(t, vase.Rank.FollowsSeller)
	assert.Zero(t, vase.Rank.PrestigeTier)
}

func TestFetchRecentItems_NotConfigured(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Remote.RecentFeedURL = ""
	client := NewClient(cfg)

	_, err := client.FetchRecentItems(context.Background())
	assert.Error(t, err)
}

func TestFetchRecentItems_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.TestConfig()
	cfg.Remote.RecentFeedURL = server.URL + "/feeds/latest.xml"
	client := NewClient(cfg)

	_, err := client.FetchRecentItems(context.Background())
	assert.Error(t, err)
}
