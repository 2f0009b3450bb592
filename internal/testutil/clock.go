package testutil

import (
	"sync"
	"time"
)

// ManualClock is a wall clock that only moves when told to.
//
// Voting windows are checked against Now, so tests pin the clock inside,
// before, or after a window and assert the guard's decision exactly.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading unix second sec.
func NewManualClock(sec int64) *ManualClock {
	return &ManualClock{now: time.Unix(sec, 0).UTC()}
}

// Now returns the current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to unix second sec. Moving backwards is allowed.
func (c *ManualClock) Set(sec int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(sec, 0).UTC()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Unix returns the current unix second.
func (c *ManualClock) Unix() int64 {
	return c.Now().Unix()
}
