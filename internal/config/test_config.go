package config

import "time"

// TestConfig returns a configuration suitable for tests: short TTLs, an
// in-memory search index and no real filesystem paths.
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Remote.BaseURL = "http://127.0.0.1:0"
	cfg.Remote.RecentFeedURL = ""
	cfg.Remote.HTTPTimeout = 2 * time.Second
	cfg.Remote.ToggleTimeout = 1 * time.Second
	cfg.Viewer.ID = "viewer-test"
	cfg.Viewer.Region = "lisbon"
	cfg.Cache.FeedTTL = 50 * time.Millisecond
	cfg.Cache.StoriesTTL = 50 * time.Millisecond
	cfg.Cache.SellerTTL = 50 * time.Millisecond
	cfg.Playback.ItemDuration = 7 * time.Second
	cfg.Prefetch.Path = ""
	cfg.Search.IndexPath = ""
	return cfg
}
