package content

import (
	"fmt"
	"time"
)

// MediaType classifies the primary media of an item.
type MediaType string

const (
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaUnknown MediaType = ""
)

// Engagement holds the mutable counters shown next to an item.
type Engagement struct {
	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
}

// ViewerState holds the per-viewer flags mutated by optimistic toggles.
type ViewerState struct {
	Liked bool `json:"liked"`
	Saved bool `json:"saved"`
}

// Ranking carries the attributes the ranking engine scores on. Missing
// attributes contribute nothing.
type Ranking struct {
	FollowsSeller bool `json:"follows_seller"`
	PrestigeTier  int  `json:"prestige_tier"`
	LocalMatch    bool `json:"local_match"`
}

// Item is one rankable unit of content: a feed listing or an ephemeral story.
// Stories always carry ExpiresAt (CreatedAt plus the configured window); feed
// listings never do.
type Item struct {
	ID        string      `json:"id"`
	SellerID  string      `json:"seller_id"`
	MediaType MediaType   `json:"media_type"`
	MediaRefs []string    `json:"media_refs"`
	Title     string      `json:"title"`
	Caption   string      `json:"caption"`
	Category  string      `json:"category"`
	Region    string      `json:"region"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	Engage    Engagement  `json:"engagement"`
	Viewer    ViewerState `json:"viewer_state"`
	Rank      Ranking     `json:"ranking"`
}

// Validate reports why an item is unusable. Items failing validation are
// dropped at the ingestion boundary rather than defended against downstream.
func (it *Item) Validate() error {
	if it == nil {
		return fmt.Errorf("nil item")
	}
	if it.ID == "" {
		return fmt.Errorf("missing id")
	}
	if len(it.MediaRefs) == 0 {
		return fmt.Errorf("item %s: no media refs", it.ID)
	}
	for _, ref := range it.MediaRefs {
		if ref == "" {
			return fmt.Errorf("item %s: empty media ref", it.ID)
		}
	}
	switch it.MediaType {
	case MediaImage, MediaVideo:
	default:
		return fmt.Errorf("item %s: unknown media type %q", it.ID, it.MediaType)
	}
	return nil
}

// Expired reports whether the item's story window has closed. Items without
// an expiry never expire.
func (it *Item) Expired(now time.Time) bool {
	return it.ExpiresAt != nil && !it.ExpiresAt.After(now)
}

// Clone returns a deep copy. Cache patches operate copy-on-write, so shared
// slices must never be mutated in place.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	dup := *it
	dup.MediaRefs = append([]string(nil), it.MediaRefs...)
	if it.ExpiresAt != nil {
		exp := *it.ExpiresAt
		dup.ExpiresAt = &exp
	}
	return &dup
}

// CloneItems deep-copies a result set.
func CloneItems(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
