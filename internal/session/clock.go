package session

import (
	"context"
	"math"
	"sync"
	"time"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
)

// Clock counts down a fixed duration from a start instant. Each Tick
// reports the remaining whole seconds; the tick that reaches zero fires
// the expiry callback exactly once and ends the countdown. A stopped or
// expired clock may be started again for a fresh attempt.
type Clock struct {
	duration time.Duration
	now      func() time.Time
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	startedAt time.Time
	running   bool
	expired   bool
	cancelRun context.CancelFunc
}

type ClockOption func(*Clock)

// WithClockNow replaces the time source.
func WithClockNow(now func() time.Time) ClockOption {
	return func(c *Clock) { c.now = now }
}

// OnTick registers a callback that receives the remaining seconds on every tick.
func OnTick(fn func(remaining int)) ClockOption {
	return func(c *Clock) { c.onTick = fn }
}

func OnExpire(fn func()) ClockOption {
	return func(c *Clock) { c.onExpire = fn }
}

func NewClock(duration time.Duration, opts ...ClockOption) *Clock {
	c := &Clock{
		duration: duration,
		now:      time.Now,
		onTick:   func(int) {},
		onExpire: func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a countdown at the given instant. It fails with
// ErrClockRunning while a countdown is in progress.
func (c *Clock) Start(at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return apperrors.ErrClockRunning
	}
	c.startedAt = at
	c.running = true
	c.expired = false
	return nil
}

// Stop ends the countdown without firing expiry and cancels Run.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.running = false
	cancel := c.cancelRun
	c.cancelRun = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Remaining returns the whole seconds left, rounded up and never negative.
// It reaches zero only once the full duration has elapsed.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Clock) remainingLocked() int {
	if c.expired {
		return 0
	}
	if !c.running && c.startedAt.IsZero() {
		return int(math.Ceil(c.duration.Seconds()))
	}
	left := c.duration - c.now().Sub(c.startedAt)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Tick samples the time source. It does nothing unless the clock is
// running. Callbacks run after the clock's lock is released.
func (c *Clock) Tick() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	remaining := c.remainingLocked()
	expire := remaining == 0
	if expire {
		c.running = false
		c.expired = true
	}
	c.mu.Unlock()

	c.onTick(remaining)
	if expire {
		c.onExpire()
	}
}

// Run ticks every interval until ctx is cancelled, Stop is called or the
// countdown expires.
func (c *Clock) Run(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancelRun = cancel
	c.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
			if !c.Running() {
				return
			}
		}
	}
}
