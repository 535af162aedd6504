package player

import (
	"sync"
	"time"
)

// Countdown is a once-per-second monotonically non-increasing timer clamped
// at zero. The initial remaining value is derived from the attempt's
// server-set start time, so resuming an in-progress attempt after a reload
// picks up mid-count instead of restarting from the full limit.
type Countdown struct {
	mu sync.Mutex

	clock     Clock
	limit     int // seconds, <= 0 means untimed
	startedAt time.Time

	remaining int
	running   bool
	expired   bool
	tick      Timer

	onTick   func(remaining int)
	onExpire func()
}

// NewCountdown builds a countdown over limit seconds measured from
// startedAt. onTick is invoked after every decrement with the new remaining
// value; onExpire fires exactly once when the count reaches zero, even if
// further ticks land at zero. Either callback may be nil.
func NewCountdown(clock Clock, limit int, startedAt time.Time, onTick func(int), onExpire func()) *Countdown {
	return &Countdown{
		clock:     clock,
		limit:     limit,
		startedAt: startedAt,
		onTick:    onTick,
		onExpire:  onExpire,
	}
}

// Start computes the remaining seconds from wall clock and begins ticking.
// An untimed countdown (limit <= 0) never ticks and never expires. If the
// limit has already elapsed, onExpire fires immediately.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.running || c.limit <= 0 {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.remaining = remainingAt(c.limit, c.startedAt, c.clock.Now())
	if c.remaining <= 0 {
		c.mu.Unlock()
		c.fireExpiry()
		return
	}
	c.scheduleTickLocked()
	c.mu.Unlock()
}

// Remaining returns the current countdown value. Untimed countdowns report 0.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Untimed reports whether the countdown has no limit.
func (c *Countdown) Untimed() bool {
	return c.limit <= 0
}

// Resync recomputes remaining from wall clock, discarding local drift. Used
// when the app returns to the foreground: backgrounding must not stop the
// clock. Fires expiry if the limit elapsed while away.
func (c *Countdown) Resync() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.remaining = remainingAt(c.limit, c.startedAt, c.clock.Now())
	if c.remaining <= 0 {
		c.stopTickLocked()
		c.mu.Unlock()
		c.fireExpiry()
		return
	}
	c.mu.Unlock()
}

// Stop halts ticking. The countdown cannot be restarted.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.stopTickLocked()
	c.running = false
	c.mu.Unlock()
}

func (c *Countdown) scheduleTickLocked() {
	c.tick = c.clock.AfterFunc(time.Second, c.onTickElapsed)
}

func (c *Countdown) stopTickLocked() {
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
}

func (c *Countdown) onTickElapsed() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	onTick := c.onTick
	if remaining <= 0 {
		c.stopTickLocked()
		c.mu.Unlock()
		if onTick != nil {
			onTick(0)
		}
		c.fireExpiry()
		return
	}
	c.scheduleTickLocked()
	c.mu.Unlock()
	if onTick != nil {
		onTick(remaining)
	}
}

// fireExpiry delivers onExpire at most once.
func (c *Countdown) fireExpiry() {
	c.mu.Lock()
	if c.expired {
		c.mu.Unlock()
		return
	}
	c.expired = true
	onExpire := c.onExpire
	c.mu.Unlock()
	if onExpire != nil {
		onExpire()
	}
}

// remainingAt clamps limit minus whole elapsed seconds at zero.
func remainingAt(limit int, startedAt, now time.Time) int {
	elapsed := int(now.Sub(startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := limit - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
