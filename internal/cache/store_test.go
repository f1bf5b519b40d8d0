package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/vitrinapp/vitrin/internal/content"
)

func item(id string) *content.Item {
	return &content.Item{
		ID:        id,
		SellerID:  "seller-1",
		MediaType: content.MediaImage,
		MediaRefs: []string{"https://cdn.test/" + id + ".jpg"},
		CreatedAt: time.Now(),
	}
}

func TestNewKey_SortedParams(t *testing.T) {
	a := NewKey("feed", map[string]string{"q": "lamp", "category": "home"})
	b := NewKey("feed", map[string]string{"category": "home", "q": "lamp"})

	if a != b {
		t.Errorf("equal param sets produced different keys: %v vs %v", a, b)
	}
	if a.String() != "feed?category=home&q=lamp" {
		t.Errorf("unexpected key serialization: %s", a.String())
	}
}

func TestNewKey_EmptyParamsSkipped(t *testing.T) {
	k := NewKey("feed", map[string]string{"q": "", "category": "home"})
	if k.String() != "feed?category=home" {
		t.Errorf("empty params should be skipped, got %s", k.String())
	}

	bare := NewKey("stories", nil)
	if bare.String() != "stories" {
		t.Errorf("bare key = %s, want 'stories'", bare.String())
	}
}

func TestStore_SetAndGet(t *testing.T) {
	s := NewStore()
	key := NewKey("feed", nil)

	s.Set(key, []*content.Item{item("a"), item("b")}, time.Minute)

	items, ok := s.Items(key)
	if !ok {
		t.Fatal("expected entry for key")
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	// Same key, second read: identical value
	again, ok := s.Items(key)
	if !ok {
		t.Fatal("expected entry on second read")
	}
	if len(again) != 2 || again[0].ID != items[0].ID {
		t.Error("repeated reads without writes must observe the same value")
	}

	if _, ok := s.Items(NewKey("stories", nil)); ok {
		t.Error("write to one key must not create another")
	}
}

func TestStore_IsStale(t *testing.T) {
	s := NewStore()
	key := NewKey("feed", nil)
	now := time.Now()

	if !s.IsStale(key, now) {
		t.Error("absent key should be stale")
	}

	s.Set(key, []*content.Item{item("a")}, time.Minute)

	if s.IsStale(key, now.Add(30*time.Second)) {
		t.Error("entry inside its TTL should not be stale")
	}
	if !s.IsStale(key, now.Add(2*time.Minute)) {
		t.Error("entry past its TTL should be stale")
	}
}

func TestStore_SetResetsFetchedAt(t *testing.T) {
	s := NewStore()
	key := NewKey("feed", nil)

	s.Set(key, []*content.Item{item("a")}, time.Minute)
	first, _ := s.Get(key)
	firstFetched := first.FetchedAt

	time.Sleep(5 * time.Millisecond)
	s.Set(key, []*content.Item{item("b")}, time.Minute)
	second, _ := s.Get(key)

	if !second.FetchedAt.After(firstFetched) {
		t.Error("Set should reset FetchedAt")
	}
	if second.Items[0].ID != "b" {
		t.Error("Set should replace the value")
	}
}

func TestStore_Invalidate(t *testing.T) {
	s := NewStore()
	feedKey := NewKey("feed", nil)
	sellerKey := NewKey("seller-items", map[string]string{"seller": "seller-1"})
	storiesKey := NewKey("stories", nil)

	s.Set(feedKey, []*content.Item{item("a")}, time.Minute)
	s.Set(sellerKey, []*content.Item{item("a")}, time.Minute)
	s.Set(storiesKey, []*content.Item{item("s")}, time.Minute)

	removed := s.Invalidate(func(k Key) bool {
		return k.Op == "feed" || strings.Contains(k.Params, "seller-1")
	})

	if removed != 2 {
		t.Errorf("expected 2 entries invalidated, got %d", removed)
	}
	if _, ok := s.Get(feedKey); ok {
		t.Error("feed entry should be gone")
	}
	if _, ok := s.Get(sellerKey); ok {
		t.Error("seller entry should be gone")
	}
	if _, ok := s.Get(storiesKey); !ok {
		t.Error("stories entry should survive")
	}
}

func TestStore_Patch(t *testing.T) {
	s := NewStore()
	key := NewKey("feed", nil)
	s.Set(key, []*content.Item{item("a")}, time.Minute)

	before, _ := s.Items(key)

	ok := s.Patch(key, func(items []*content.Item) []*content.Item {
		out := content.CloneItems(items)
		out[0].Viewer.Liked = true
		out[0].Engage.LikeCount++
		return out
	})
	if !ok {
		t.Fatal("Patch should find the key")
	}

	after, _ := s.Items(key)
	if !after[0].Viewer.Liked || after[0].Engage.LikeCount != 1 {
		t.Error("patch not applied")
	}

	// Copy-on-write: the previously read slice is untouched
	if before[0].Viewer.Liked {
		t.Error("patch must not mutate values observed by earlier reads")
	}

	if s.Patch(NewKey("absent", nil), func(i []*content.Item) []*content.Item { return i }) {
		t.Error("Patch on absent key should report false")
	}
}

func TestStore_PatchWhere(t *testing.T) {
	s := NewStore()
	feedKey := NewKey("feed", nil)
	sellerKey := NewKey("seller-items", map[string]string{"seller": "seller-1"})

	s.Set(feedKey, []*content.Item{item("x"), item("y")}, time.Minute)
	s.Set(sellerKey, []*content.Item{item("x")}, time.Minute)

	patched := s.PatchWhere(
		func(Key) bool { return true },
		func(items []*content.Item) []*content.Item {
			out := content.CloneItems(items)
			for _, it := range out {
				if it.ID == "x" {
					it.Viewer.Saved = true
				}
			}
			return out
		},
	)

	if patched != 2 {
		t.Errorf("expected 2 entries patched, got %d", patched)
	}

	for _, key := range []Key{feedKey, sellerKey} {
		items, _ := s.Items(key)
		for _, it := range items {
			if it.ID == "x" && !it.Viewer.Saved {
				t.Errorf("item x not patched under key %v", key)
			}
			if it.ID == "y" && it.Viewer.Saved {
				t.Errorf("item y wrongly patched under key %v", key)
			}
		}
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.Set(NewKey("feed", nil), []*content.Item{item("a")}, time.Minute)
	s.Set(NewKey("stories", nil), []*content.Item{item("s")}, time.Minute)

	s.Reset()

	if s.Len() != 0 {
		t.Errorf("expected empty store after Reset, got %d entries", s.Len())
	}
}
