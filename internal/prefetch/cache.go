// Package prefetch keeps already-downloaded media bytes on disk so that
// advancing through a story queue never shows a loading flicker for a
// neighbor that was warmed ahead of time. It caches presentation assets
// only; query results stay in memory and do not survive restart.
package prefetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/debuglog"
)

var (
	mediaBucket = []byte("media")
	metaBucket  = []byte("metadata")
)

// maxAssetSize caps a single cached asset. Anything larger streams from the
// network at view time instead.
const maxAssetSize = 32 << 20

type assetMeta struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Cache is a bbolt-backed byte store keyed by media URL.
type Cache struct {
	db     *bolt.DB
	client *http.Client
}

func NewCache(dbPath string, timeout time.Duration) (*Cache, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening prefetch database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{mediaBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Cache{db: db, client: &http.Client{Timeout: timeout}}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Has reports whether the asset at url is already cached.
func (c *Cache) Has(url string) bool {
	var found bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(mediaBucket).Get([]byte(url)) != nil
		return nil
	})
	return found
}

// Get returns the cached bytes and content type for url.
func (c *Cache) Get(url string) ([]byte, string, error) {
	var data []byte
	var meta assetMeta
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(mediaBucket).Get([]byte(url))
		if raw == nil {
			return fmt.Errorf("asset not cached")
		}
		data = make([]byte, len(raw))
		copy(data, raw)

		if m := tx.Bucket(metaBucket).Get([]byte(url)); m != nil {
			_ = json.Unmarshal(m, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, meta.ContentType, nil
}

// Put stores bytes fetched elsewhere.
func (c *Cache) Put(url, contentType string, data []byte) error {
	if len(data) > maxAssetSize {
		return fmt.Errorf("asset exceeds cache limit: %d bytes", len(data))
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(mediaBucket).Put([]byte(url), data); err != nil {
			return err
		}
		meta, err := json.Marshal(assetMeta{
			URL:         url,
			ContentType: contentType,
			Size:        len(data),
			FetchedAt:   time.Now(),
		})
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(url), meta)
	})
}

// Fetch downloads url into the cache unless already present.
func (c *Cache) Fetch(ctx context.Context, url string) error {
	if c.Has(url) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetching asset: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return fmt.Errorf("reading asset: %w", err)
	}
	if len(data) > maxAssetSize {
		return fmt.Errorf("asset exceeds cache limit")
	}

	return c.Put(url, resp.Header.Get("Content-Type"), data)
}

// WarmItem fetches every media reference of one item. Failures are logged
// and swallowed: a cold asset degrades to a network load at view time.
func (c *Cache) WarmItem(ctx context.Context, it *content.Item) {
	if it == nil {
		return
	}
	for _, ref := range it.MediaRefs {
		if err := c.Fetch(ctx, ref); err != nil {
			debuglog.Debugf("prefetch: warming %s: %v", ref, err)
		}
	}
}

// Prune drops assets fetched before the cutoff.
func (c *Cache) Prune(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		media := tx.Bucket(mediaBucket)
		meta := tx.Bucket(metaBucket)

		cur := meta.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			var m assetMeta
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.FetchedAt.Before(cutoff) {
				if err := cur.Delete(); err != nil {
					return err
				}
				if err := media.Delete(k); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}
