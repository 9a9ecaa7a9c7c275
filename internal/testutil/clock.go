// Package testutil provides deterministic clock and id sources so engine
// tests produce stable timestamps, relationship ids and snapshot ids.
package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe logical clock for tests. Each Now()
// call advances by a fixed step, so successive timestamps are distinct
// and fully predictable.
type DeterministicClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock that returns base on the first
// Now() call and advances by step on each subsequent call.
func NewDeterministicClock(base time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{next: base.UTC(), step: step}
}

// Now returns the current logical time and advances the clock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Reset rewinds the clock to a new base time.
func (c *DeterministicClock) Reset(base time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = base.UTC()
}
