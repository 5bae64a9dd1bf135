package testfixtures

import (
	"sync"
	"time"
)

// Clock is a frozen time source for service tests. It only moves when told
// to, so created_at/updated_at assertions stay exact.
type Clock struct {
	mu      sync.RWMutex
	instant time.Time
}

// NewClock starts a clock at the given instant, or at ReferenceTime when
// start is zero.
func NewClock(start time.Time) *Clock {
	c := &Clock{instant: ReferenceTime()}
	if !start.IsZero() {
		c.instant = start
	}
	return c
}

func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instant
}

// NowFunc adapts the clock to the `now func() time.Time` parameter the
// services take. A nil clock degrades to the real time source.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.instant = t
	c.mu.Unlock()
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instant = c.instant.Add(d)
	return c.instant
}
