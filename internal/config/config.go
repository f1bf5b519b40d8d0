package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Remote   RemoteConfig   `mapstructure:"remote"`
	Viewer   ViewerConfig   `mapstructure:"viewer"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Prefetch PrefetchConfig `mapstructure:"prefetch"`
	Search   SearchConfig   `mapstructure:"search"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type RemoteConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	RecentFeedURL string        `mapstructure:"recent_feed_url"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	ToggleTimeout time.Duration `mapstructure:"toggle_timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
}

type ViewerConfig struct {
	ID     string `mapstructure:"id"`
	Region string `mapstructure:"region"`
}

type CacheConfig struct {
	FeedTTL    time.Duration `mapstructure:"feed_ttl"`
	StoriesTTL time.Duration `mapstructure:"stories_ttl"`
	SellerTTL  time.Duration `mapstructure:"seller_ttl"`
}

// RankingConfig exposes the scoring weights as tunable values rather than
// inlined literals. Changing them reorders feeds; expiry filtering is not
// affected.
type RankingConfig struct {
	FollowedWeight  int           `mapstructure:"followed_weight"`
	PrestigeWeight  int           `mapstructure:"prestige_weight"`
	LocalWeight     int           `mapstructure:"local_weight"`
	VideoWeight     int           `mapstructure:"video_weight"`
	TopPrestigeTier int           `mapstructure:"top_prestige_tier"`
	StoryWindow     time.Duration `mapstructure:"story_window"`
}

type PlaybackConfig struct {
	ItemDuration time.Duration `mapstructure:"item_duration"`
}

type PrefetchConfig struct {
	Path        string        `mapstructure:"path"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// SearchConfig controls the local index over cached items. An empty index
// path keeps the index in memory.
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

type UIConfig struct {
	Colors UIColors `mapstructure:"colors"`
}

type UIColors struct {
	Primary string `mapstructure:"primary"`
	Accent  string `mapstructure:"accent"`
	Text    string `mapstructure:"text"`
	Muted   string `mapstructure:"muted"`
	Error   string `mapstructure:"error"`
}

type KeyConfig struct {
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	Search  string `mapstructure:"search"`
	Like    string `mapstructure:"like"`
	Save    string `mapstructure:"save"`
	Stories string `mapstructure:"stories"`
	Refresh string `mapstructure:"refresh"`
	Back    string `mapstructure:"back"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	prefetchPath := filepath.Join(homeDir, ".vitrin", "prefetch.db")
	indexPath := filepath.Join(homeDir, ".vitrin", "index.bleve")

	return &Config{
		Remote: RemoteConfig{
			BaseURL:       "https://api.vitrin.app",
			RecentFeedURL: "https://vitrin.app/feeds/latest.xml",
			HTTPTimeout:   10 * time.Second,
			ToggleTimeout: 5 * time.Second,
			UserAgent:     "vitrin/1.0 (https://github.com/vitrinapp/vitrin)",
		},
		Viewer: ViewerConfig{},
		Cache: CacheConfig{
			FeedTTL:    2 * time.Minute,
			StoriesTTL: 5 * time.Minute,
			SellerTTL:  2 * time.Minute,
		},
		Ranking: RankingConfig{
			FollowedWeight:  40,
			PrestigeWeight:  25,
			LocalWeight:     15,
			VideoWeight:     10,
			TopPrestigeTier: 2,
			StoryWindow:     12 * time.Hour,
		},
		Playback: PlaybackConfig{
			ItemDuration: 7 * time.Second,
		},
		Prefetch: PrefetchConfig{
			Path:        prefetchPath,
			HTTPTimeout: 15 * time.Second,
		},
		Search: SearchConfig{
			IndexPath: indexPath,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary: "#E8745C",
				Accent:  "#6BC5B8",
				Text:    "#EAEAEA",
				Muted:   "#94A3B8",
				Error:   "#F87171",
			},
		},
		Keys: KeyConfig{
			Bindings: KeyBindings{
				Quit:    "q",
				Search:  "/",
				Like:    "l",
				Save:    "b",
				Stories: "s",
				Refresh: "r",
				Back:    "esc",
			},
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("remote", cfg.Remote)
	v.SetDefault("viewer", cfg.Viewer)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("ranking", cfg.Ranking)
	v.SetDefault("playback", cfg.Playback)
	v.SetDefault("prefetch", cfg.Prefetch)
	v.SetDefault("search", cfg.Search)
	v.SetDefault("ui", cfg.UI)
	v.SetDefault("keys", cfg.Keys)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "vitrin")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VITRIN")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Prefetch.Path = expandPath(cfg.Prefetch.Path)
	cfg.Search.IndexPath = expandPath(cfg.Search.IndexPath)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Convert durations to strings for TOML readability
	remoteCfg := map[string]interface{}{
		"base_url":        config.Remote.BaseURL,
		"recent_feed_url": config.Remote.RecentFeedURL,
		"http_timeout":    config.Remote.HTTPTimeout.String(),
		"toggle_timeout":  config.Remote.ToggleTimeout.String(),
		"user_agent":      config.Remote.UserAgent,
	}

	cacheCfg := map[string]interface{}{
		"feed_ttl":    config.Cache.FeedTTL.String(),
		"stories_ttl": config.Cache.StoriesTTL.String(),
		"seller_ttl":  config.Cache.SellerTTL.String(),
	}

	rankingCfg := map[string]interface{}{
		"followed_weight":   config.Ranking.FollowedWeight,
		"prestige_weight":   config.Ranking.PrestigeWeight,
		"local_weight":      config.Ranking.LocalWeight,
		"video_weight":      config.Ranking.VideoWeight,
		"top_prestige_tier": config.Ranking.TopPrestigeTier,
		"story_window":      config.Ranking.StoryWindow.String(),
	}

	playbackCfg := map[string]interface{}{
		"item_duration": config.Playback.ItemDuration.String(),
	}

	prefetchCfg := map[string]interface{}{
		"path":         config.Prefetch.Path,
		"http_timeout": config.Prefetch.HTTPTimeout.String(),
	}

	v.Set("remote", remoteCfg)
	v.Set("viewer", config.Viewer)
	v.Set("cache", cacheCfg)
	v.Set("ranking", rankingCfg)
	v.Set("playback", playbackCfg)
	v.Set("prefetch", prefetchCfg)
	v.Set("search", config.Search)
	v.Set("ui", config.UI)
	v.Set("keys", config.Keys)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
