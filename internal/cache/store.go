package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vitrinapp/vitrin/internal/content"
)

// Key identifies one cache slot: an operation name plus its serialized
// filter parameters. Two requests with equal keys share the slot.
type Key struct {
	Op     string
	Params string
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Op
	}
	return k.Op + "?" + k.Params
}

// NewKey builds a composite key. Parameters are serialized in sorted order so
// that equal parameter sets always produce equal keys.
func NewKey(op string, params map[string]string) Key {
	if len(params) == 0 {
		return Key{Op: op}
	}
	names := make([]string, 0, len(params))
	for name, val := range params {
		if val == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(params[name])
	}
	return Key{Op: op, Params: sb.String()}
}

// Entry is one cached result set with its staleness bookkeeping.
type Entry struct {
	Key       Key
	Items     []*content.Item
	FetchedAt time.Time
	TTL       time.Duration
}

// Stale reports whether the entry's TTL has elapsed at now.
func (e *Entry) Stale(now time.Time) bool {
	return now.Sub(e.FetchedAt) > e.TTL
}

// Store is a constructible keyed store of query results. All mutation goes
// through Set/Patch/Invalidate; cached slices are replaced copy-on-write so
// a read observed before a patch is never mutated underneath the reader.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewStore returns an empty store. Multiple stores can coexist; tests create
// one per case instead of sharing process-wide state.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// SetClock replaces the store's time source. Test use only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get returns the entry for key, or false when absent.
func (s *Store) Get(key Key) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key.String()]
	return e, ok
}

// Items returns the cached result set for key, or false when absent.
// Callers must treat the slice as read-only; changes go through Patch.
func (s *Store) Items(key Key) ([]*content.Item, bool) {
	e, ok := s.Get(key)
	if !ok {
		return nil, false
	}
	return e.Items, true
}

// Set inserts or replaces the entry for key and resets its fetch time.
func (s *Store) Set(key Key, items []*content.Item, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = &Entry{
		Key:       key,
		Items:     items,
		FetchedAt: s.now(),
		TTL:       ttl,
	}
}

// IsStale reports whether key is absent or past its TTL at now.
func (s *Store) IsStale(key Key, now time.Time) bool {
	e, ok := s.Get(key)
	if !ok {
		return true
	}
	return e.Stale(now)
}

// Invalidate removes every entry whose key matches the predicate and returns
// how many were removed. A mutation that can affect several views (home feed,
// one seller's feed, a detail set) invalidates them all in one call.
func (s *Store) Invalidate(pred func(Key) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if pred(e.Key) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Patch applies a pure transform to the cached result set for key. The
// transform receives the current slice and returns the replacement; it must
// not mutate its input. Returns false when the key is absent.
func (s *Store) Patch(key Key, fn func([]*content.Item) []*content.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return false
	}
	e.Items = fn(e.Items)
	return true
}

// PatchWhere applies the transform to every entry whose key matches the
// predicate, under one lock acquisition so all views change together.
// Returns the number of entries patched.
func (s *Store) PatchWhere(pred func(Key) bool, fn func([]*content.Item) []*content.Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	patched := 0
	for _, e := range s.entries {
		if pred(e.Key) {
			e.Items = fn(e.Items)
			patched++
		}
	}
	return patched
}

// Keys returns the keys currently held, in no particular order.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for _, e := range s.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset drops every entry. Cold start behaves as if nothing was ever cached.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
}
