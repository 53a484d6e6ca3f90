package playback

import (
	"errors"
	"sync"
	"time"

	"storyloom/internal/story/audio"
)

var ErrNoAudio = errors.New("nothing to play")

// Controller keeps at most one narration playing and owns the pending
// auto-advance timer. Every Play and Stop bumps a token and clears the
// timer; completions carrying an older token are dropped, so onEnded and
// the auto-advance run at most once and never after an intervening Stop.
//
// Callbacks are always invoked without the controller lock held.
type Controller struct {
	out Output

	mu      sync.Mutex
	token   uint64
	playing bool
	timer   *time.Timer
}

func NewController(out Output) *Controller {
	return &Controller{out: out}
}

// Play stops whatever is playing and starts buf from the beginning.
// onEnded is called once buf finishes on its own; it is not called when
// playback is stopped or replaced.
func (c *Controller) Play(buf *audio.DecodedAudio, onEnded func()) error {
	if buf == nil {
		return ErrNoAudio
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked()

	token := c.token
	if err := c.out.Start(buf, func() { c.finished(token, onEnded) }); err != nil {
		return err
	}
	c.playing = true
	return nil
}

func (c *Controller) finished(token uint64, onEnded func()) {
	c.mu.Lock()
	if token != c.token || !c.playing {
		c.mu.Unlock()
		return
	}
	c.playing = false
	c.token++
	c.mu.Unlock()

	if onEnded != nil {
		onEnded()
	}
}

// Stop halts playback and disarms any pending auto-advance. Safe to call
// when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked()
}

func (c *Controller) haltLocked() {
	c.token++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.playing {
		c.out.Halt()
		c.playing = false
	}
}

// After arms the auto-advance timer, replacing any pending one. fn runs at
// most once, and not at all if Play or Stop is called first.
func (c *Controller) After(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.timer != t {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.mu.Unlock()
		fn()
	})
	c.timer = t
}

// Disarm cancels a pending auto-advance without touching playback.
func (c *Controller) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Pending reports whether an auto-advance is armed.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}
