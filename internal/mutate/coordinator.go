// Package mutate applies engagement toggles optimistically: the local caches
// flip in the same tick as the user action, the backend call happens after,
// and a failed call rolls every view back to its snapshot. The rollback logic
// lives here once instead of being copy-pasted next to each screen.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vitrinapp/vitrin/internal/cache"
	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/debuglog"
	"github.com/vitrinapp/vitrin/internal/remote"
)

// RemoteToggle dispatches one engagement change to the backend.
type RemoteToggle func(ctx context.Context, itemID string, kind content.ActionKind, value bool) error

// Status of a pending mutation.
type Status int

const (
	StatusInFlight Status = iota
	StatusSettled
)

// Snapshot captures the entity state needed to undo one toggle exactly.
type Snapshot struct {
	Liked     bool
	Saved     bool
	LikeCount int
}

// PendingMutation tracks one in-flight toggle. At most one exists per
// (item, kind) pair; a newer toggle supersedes it by bumping Seq.
type PendingMutation struct {
	ItemID   string
	Kind     content.ActionKind
	Previous Snapshot
	Desired  bool
	Seq      uint64
	Status   Status
}

// Notice is a non-fatal report surfaced to the presentation layer after a
// failed toggle was rolled back.
type Notice struct {
	ItemID  string
	Kind    content.ActionKind
	Err     error
	Evicted bool
}

type pendingKey struct {
	ItemID string
	Kind   content.ActionKind
}

// Coordinator owns the optimistic toggle protocol over one cache store.
type Coordinator struct {
	store  *cache.Store
	remote RemoteToggle

	// OnNotice, when set, receives rollback notices. Called from the
	// completion goroutine.
	OnNotice func(Notice)

	mu      sync.Mutex
	pending map[pendingKey]*PendingMutation
	nextSeq uint64
	wg      sync.WaitGroup
}

func NewCoordinator(store *cache.Store, remoteCall RemoteToggle) *Coordinator {
	return &Coordinator{
		store:   store,
		remote:  remoteCall,
		pending: make(map[pendingKey]*PendingMutation),
	}
}

// Toggle flips the viewer's like/save state for the item across every cached
// view, then dispatches the remote call. The local flip is visible before
// this function returns; the remote completion settles or rolls back later.
//
// Policy for rapid re-taps: supersede. A toggle arriving while one is in
// flight takes over the pending slot with a higher sequence number and issues
// a call for the latest desired state; the older completion is discarded.
func (c *Coordinator) Toggle(ctx context.Context, itemID string, kind content.ActionKind) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid action kind %q", kind)
	}

	c.mu.Lock()

	current, ok := c.lookup(itemID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("item %s not present in any cached view", itemID)
	}

	prev := Snapshot{
		Liked:     current.Viewer.Liked,
		Saved:     current.Viewer.Saved,
		LikeCount: current.Engage.LikeCount,
	}

	var desired bool
	switch kind {
	case content.ActionLike:
		desired = !current.Viewer.Liked
	case content.ActionSave:
		desired = !current.Viewer.Saved
	}

	// Same-tick patch of every view containing the entity.
	c.applyValue(itemID, kind, desired)

	key := pendingKey{ItemID: itemID, Kind: kind}
	c.nextSeq++
	seq := c.nextSeq

	if prior, inFlight := c.pending[key]; inFlight && prior.Status == StatusInFlight {
		debuglog.Debugf("mutate: superseding %s/%s seq=%d with seq=%d", itemID, kind, prior.Seq, seq)
	}
	c.pending[key] = &PendingMutation{
		ItemID:   itemID,
		Kind:     kind,
		Previous: prev,
		Desired:  desired,
		Seq:      seq,
		Status:   StatusInFlight,
	}

	c.mu.Unlock()

	c.wg.Add(1)
	go c.dispatch(ctx, key, seq, desired, prev)

	return nil
}

func (c *Coordinator) dispatch(ctx context.Context, key pendingKey, seq uint64, desired bool, prev Snapshot) {
	defer c.wg.Done()

	err := c.remote(ctx, key.ItemID, key.Kind, desired)

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[key]
	if !ok || p.Seq != seq {
		// A newer toggle superseded this one; its completion is authoritative.
		debuglog.Debugf("mutate: discarding stale completion %s/%s seq=%d", key.ItemID, key.Kind, seq)
		return
	}

	p.Status = StatusSettled
	delete(c.pending, key)

	if err == nil {
		// Optimistic value is now authoritative.
		return
	}

	evicted := errors.Is(err, remote.ErrConflict)
	if evicted {
		c.evict(key.ItemID)
		debuglog.Warnf("mutate: %s/%s conflicted, entity evicted: %v", key.ItemID, key.Kind, err)
	} else {
		c.restore(key.ItemID, prev)
		debuglog.Warnf("mutate: %s/%s failed, rolled back: %v", key.ItemID, key.Kind, err)
	}

	if c.OnNotice != nil {
		notice := Notice{ItemID: key.ItemID, Kind: key.Kind, Err: err, Evicted: evicted}
		go c.OnNotice(notice)
	}
}

// Wait blocks until every dispatched completion has been processed.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// InFlight reports whether a pending mutation exists for the pair.
func (c *Coordinator) InFlight(itemID string, kind content.ActionKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[pendingKey{ItemID: itemID, Kind: kind}]
	return ok && p.Status == StatusInFlight
}

// lookup finds the entity in any cached view. Caller holds c.mu.
func (c *Coordinator) lookup(itemID string) (*content.Item, bool) {
	for _, key := range c.store.Keys() {
		items, ok := c.store.Items(key)
		if !ok {
			continue
		}
		for _, it := range items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return nil, false
}

// applyValue sets the flag (and moves the like counter by exactly one,
// clamped at zero) on every view containing the entity.
func (c *Coordinator) applyValue(itemID string, kind content.ActionKind, value bool) {
	c.store.PatchWhere(
		func(cache.Key) bool { return true },
		func(items []*content.Item) []*content.Item {
			return patchItem(items, itemID, func(it *content.Item) {
				switch kind {
				case content.ActionLike:
					if it.Viewer.Liked == value {
						return
					}
					it.Viewer.Liked = value
					if value {
						it.Engage.LikeCount++
					} else if it.Engage.LikeCount > 0 {
						it.Engage.LikeCount--
					}
				case content.ActionSave:
					it.Viewer.Saved = value
				}
			})
		},
	)
}

// restore puts the exact snapshot back on every view containing the entity.
func (c *Coordinator) restore(itemID string, prev Snapshot) {
	c.store.PatchWhere(
		func(cache.Key) bool { return true },
		func(items []*content.Item) []*content.Item {
			return patchItem(items, itemID, func(it *content.Item) {
				it.Viewer.Liked = prev.Liked
				it.Viewer.Saved = prev.Saved
				it.Engage.LikeCount = prev.LikeCount
			})
		},
	)
}

// evict removes the entity from every cached view.
func (c *Coordinator) evict(itemID string) {
	c.store.PatchWhere(
		func(cache.Key) bool { return true },
		func(items []*content.Item) []*content.Item {
			out := make([]*content.Item, 0, len(items))
			for _, it := range items {
				if it.ID != itemID {
					out = append(out, it)
				}
			}
			return out
		},
	)
}

// patchItem clones the slice and applies fn to the matching item. Untouched
// slices are returned as-is so unrelated views keep their identity.
func patchItem(items []*content.Item, itemID string, fn func(*content.Item)) []*content.Item {
	found := false
	for _, it := range items {
		if it.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return items
	}

	out := make([]*content.Item, len(items))
	for i, it := range items {
		if it.ID == itemID {
			dup := it.Clone()
			fn(dup)
			out[i] = dup
		} else {
			out[i] = it
		}
	}
	return out
}
