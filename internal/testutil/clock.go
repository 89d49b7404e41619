package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant fixed clocks start at unless told otherwise:
// Monday 2 March 2026, 09:30 UTC.
var Epoch = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// FixedClock is a wall clock that only moves when told to.
//
// Implements engine.Clock. Tests that compare timestamps or golden output
// use it so the same scenario always yields the same ids and times.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock stopped at t. A zero t means Epoch.
func NewFixedClock(t time.Time) *FixedClock {
	if t.IsZero() {
		t = Epoch
	}
	return &FixedClock{now: t}
}

// Now returns the current fixed instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
