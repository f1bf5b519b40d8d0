package content

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vitrinapp/vitrin/internal/debuglog"
)

// DecodeItems reads a JSON array of items and returns the valid ones.
// Malformed records are dropped and logged, never propagated; an error is
// returned only when the payload itself cannot be parsed.
//
// storyWindow, when non-zero, pins each story's expiry to CreatedAt plus the
// window: an item that arrived with any expiry set is normalized so the
// invariant expiresAt = createdAt + window holds regardless of what the
// backend sent.
func DecodeItems(r io.Reader, storyWindow time.Duration) ([]*Item, error) {
	var raw []*Item
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	return sanitize(raw, storyWindow), nil
}

func sanitize(raw []*Item, storyWindow time.Duration) []*Item {
	items := make([]*Item, 0, len(raw))
	for _, it := range raw {
		if err := it.Validate(); err != nil {
			debuglog.Warnf("dropping malformed item: %v", err)
			continue
		}
		if it.ExpiresAt != nil && storyWindow > 0 {
			exp := it.CreatedAt.Add(storyWindow)
			it.ExpiresAt = &exp
		}
		items = append(items, it)
	}
	return items
}

// AsStories stamps every item with an expiry derived from its creation time.
// The stories endpoint is supposed to set expiries itself; this keeps the
// window invariant even when it does not.
func AsStories(items []*Item, storyWindow time.Duration) []*Item {
	if storyWindow <= 0 {
		return items
	}
	for _, it := range items {
		exp := it.CreatedAt.Add(storyWindow)
		it.ExpiresAt = &exp
	}
	return items
}
