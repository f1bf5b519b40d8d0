// Package player drives timed advancement through one seller's story queue.
// The controller is a plain state machine with an injectable timer, so the
// rendering layer only subscribes to state changes and never owns playback
// timing itself.
package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/debuglog"
)

// ErrExited is returned by every operation invoked after the controller
// reached its terminal state.
var ErrExited = errors.New("story playback already exited")

// State of the playback machine.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateExiting:
		return "exiting"
	}
	return "unknown"
}

// Change is one observed transition. Item is nil for Loading and Exiting.
type Change struct {
	State State
	Index int
	Item  *content.Item
}

// Controller runs a fixed, ordered queue of story items under a per-item
// timer. Each item plays for the same configured duration regardless of the
// underlying media; videos loop muted under the visual timer.
type Controller struct {
	// Prefetch, when set, is called with the next queue item whenever an
	// item starts playing. It must not block.
	Prefetch func(*content.Item)

	// OnChange, when set, receives every state transition. Called without
	// the controller lock held.
	OnChange func(Change)

	mu        sync.Mutex
	queue     []*content.Item
	index     int
	state     State
	itemDur   time.Duration
	remaining time.Duration
	deadline  time.Time
	cancel    func() bool
	gen       uint64

	now   func() time.Time
	after func(time.Duration, func()) func() bool
}

func NewController(itemDuration time.Duration) *Controller {
	if itemDuration <= 0 {
		itemDuration = 7 * time.Second
	}
	return &Controller{
		itemDur: itemDuration,
		state:   StateIdle,
		now:     time.Now,
		after: func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		},
	}
}

// effects accumulated under the lock and delivered after release, so that
// subscribers can call back into the controller.
type effects struct {
	changes  []Change
	prefetch *content.Item
}

func (c *Controller) flush(fx *effects) {
	for _, ch := range fx.changes {
		if c.OnChange != nil {
			c.OnChange(ch)
		}
	}
	if fx.prefetch != nil && c.Prefetch != nil {
		c.Prefetch(fx.prefetch)
	}
}

// Start resolves the queue and begins playing at startIndex. An out-of-range
// startIndex (a deep link to an item no longer in the queue) falls back to 0.
func (c *Controller) Start(queue []*content.Item, startIndex int) error {
	c.mu.Lock()
	if c.state == StateExiting {
		c.mu.Unlock()
		return ErrExited
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("playback already started")
	}
	if len(queue) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("empty story queue")
	}
	if startIndex < 0 || startIndex >= len(queue) {
		startIndex = 0
	}

	var fx effects
	c.queue = queue
	c.state = StateLoading
	fx.changes = append(fx.changes, Change{State: StateLoading})

	c.index = startIndex
	c.playLocked(c.itemDur, &fx)
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// Pause suspends the running timer, preserving the remaining duration for
// the current item. A no-op unless currently playing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.state == StateExiting {
		c.mu.Unlock()
		return ErrExited
	}
	if c.state != StatePlaying {
		c.mu.Unlock()
		return nil
	}

	c.remaining = c.deadline.Sub(c.now())
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.stopTimerLocked()
	c.state = StatePaused

	fx := effects{changes: []Change{{State: StatePaused, Index: c.index, Item: c.queue[c.index]}}}
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// Resume continues the current item from the remaining duration recorded at
// pause time, not from a full timer.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.state == StateExiting {
		c.mu.Unlock()
		return ErrExited
	}
	if c.state != StatePaused {
		c.mu.Unlock()
		return nil
	}

	var fx effects
	c.playLocked(c.remaining, &fx)
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// Forward behaves like timer completion: advance to the next item or exit
// from the last one.
func (c *Controller) Forward() error {
	c.mu.Lock()
	if c.state == StateExiting {
		c.mu.Unlock()
		return ErrExited
	}
	if c.state != StatePlaying && c.state != StatePaused {
		c.mu.Unlock()
		return nil
	}

	var fx effects
	c.advanceLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// Backward moves to the previous item with a full timer. At index 0 it
// restarts the current item instead of underflowing.
func (c *Controller) Backward() error {
	c.mu.Lock()
	if c.state == StateExiting {
		c.mu.Unlock()
		return ErrExited
	}
	if c.state != StatePlaying && c.state != StatePaused {
		c.mu.Unlock()
		return nil
	}

	if c.index > 0 {
		c.index--
	}
	var fx effects
	c.playLocked(c.itemDur, &fx)
	c.mu.Unlock()

	c.flush(&fx)
	return nil
}

// Exit tears the controller down. Idempotent; a second call is a no-op, and
// no timer callback fires afterward.
func (c *Controller) Exit() {
	c.mu.Lock()
	if c.state == StateExiting {
		c.mu.Unlock()
		return
	}

	var fx effects
	c.exitLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
}

// State reports the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Index reports the current queue position.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns the item at the current position, or nil before Start and
// after Exit.
func (c *Controller) Current() *content.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying || c.state == StatePaused {
		return c.queue[c.index]
	}
	return nil
}

// Remaining reports how much of the current item's timer is left.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StatePlaying:
		if rem := c.deadline.Sub(c.now()); rem > 0 {
			return rem
		}
		return 0
	case StatePaused:
		return c.remaining
	}
	return 0
}

// playLocked (re)starts the timer for the current index and schedules the
// neighbor prefetch. Caller holds c.mu.
func (c *Controller) playLocked(d time.Duration, fx *effects) {
	c.stopTimerLocked()
	c.gen++
	gen := c.gen

	c.state = StatePlaying
	c.deadline = c.now().Add(d)
	c.cancel = c.after(d, func() { c.onTimer(gen) })

	fx.changes = append(fx.changes, Change{State: StatePlaying, Index: c.index, Item: c.queue[c.index]})
	if c.index+1 < len(c.queue) {
		fx.prefetch = c.queue[c.index+1]
	}
}

// onTimer fires on timer completion. The generation check drops callbacks
// that outlived a pause, a manual navigation or the teardown.
func (c *Controller) onTimer(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StatePlaying {
		debuglog.Debugf("player: ignoring stale timer gen=%d state=%s", gen, c.state)
		c.mu.Unlock()
		return
	}

	var fx effects
	c.advanceLocked(&fx)
	c.mu.Unlock()

	c.flush(&fx)
}

func (c *Controller) advanceLocked(fx *effects) {
	if c.index < len(c.queue)-1 {
		c.index++
		c.playLocked(c.itemDur, fx)
		return
	}
	c.exitLocked(fx)
}

func (c *Controller) exitLocked(fx *effects) {
	c.stopTimerLocked()
	c.gen++
	c.state = StateExiting
	fx.changes = append(fx.changes, Change{State: StateExiting, Index: c.index})
}

func (c *Controller) stopTimerLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
