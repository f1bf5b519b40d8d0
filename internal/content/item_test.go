package content

import (
	"testing"
	"time"
)

func validItem() *Item {
	return &Item{
		ID:        "itm-1",
		SellerID:  "seller-1",
		MediaType: MediaImage,
		MediaRefs: []string{"https://cdn.test/itm-1.jpg"},
		CreatedAt: time.Now(),
	}
}

func TestItemValidate(t *testing.T) {
	if err := validItem().Validate(); err != nil {
		t.Errorf("valid item rejected: %v", err)
	}

	var nilItem *Item
	if err := nilItem.Validate(); err == nil {
		t.Error("nil item should be rejected")
	}

	noID := validItem()
	noID.ID = ""
	if err := noID.Validate(); err == nil {
		t.Error("item without id should be rejected")
	}

	noMedia := validItem()
	noMedia.MediaRefs = nil
	if err := noMedia.Validate(); err == nil {
		t.Error("item without media refs should be rejected")
	}

	emptyRef := validItem()
	emptyRef.MediaRefs = []string{""}
	if err := emptyRef.Validate(); err == nil {
		t.Error("item with empty media ref should be rejected")
	}

	badType := validItem()
	badType.MediaType = "gif"
	if err := badType.Validate(); err == nil {
		t.Error("item with unknown media type should be rejected")
	}
}

func TestItemExpired(t *testing.T) {
	now := time.Now()

	listing := validItem()
	if listing.Expired(now) {
		t.Error("item without expiry never expires")
	}

	story := validItem()
	exp := now.Add(time.Hour)
	story.ExpiresAt = &exp
	if story.Expired(now) {
		t.Error("story inside its window is not expired")
	}

	atBoundary := now
	story.ExpiresAt = &atBoundary
	if !story.Expired(now) {
		t.Error("expiresAt == now counts as expired")
	}

	past := now.Add(-time.Minute)
	story.ExpiresAt = &past
	if !story.Expired(now) {
		t.Error("story past its window is expired")
	}
}

func TestItemClone(t *testing.T) {
	orig := validItem()
	exp := time.Now().Add(time.Hour)
	orig.ExpiresAt = &exp
	orig.Engage.LikeCount = 3

	dup := orig.Clone()
	dup.Viewer.Liked = true
	dup.Engage.LikeCount = 4
	dup.MediaRefs[0] = "changed"
	*dup.ExpiresAt = dup.ExpiresAt.Add(time.Hour)

	if orig.Viewer.Liked {
		t.Error("clone must not share viewer state")
	}
	if orig.Engage.LikeCount != 3 {
		t.Error("clone must not share counters")
	}
	if orig.MediaRefs[0] == "changed" {
		t.Error("clone must not share the media refs slice")
	}
	if orig.ExpiresAt.Equal(*dup.ExpiresAt) {
		t.Error("clone must not share the expiry pointer")
	}
}

func TestCloneItems(t *testing.T) {
	items := []*Item{validItem(), validItem()}
	items[1].ID = "itm-2"

	dup := CloneItems(items)
	dup[0].Viewer.Saved = true

	if items[0].Viewer.Saved {
		t.Error("CloneItems must deep-copy every item")
	}
	if len(dup) != 2 || dup[1].ID != "itm-2" {
		t.Error("CloneItems must preserve order and content")
	}

	if CloneItems(nil) != nil {
		t.Error("CloneItems(nil) should be nil")
	}
}
