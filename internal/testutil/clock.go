// Package testutil holds helpers shared by test code.
package testutil

import (
	"sync"
	"time"
)

// Clock is a thread-safe deterministic wall clock for tests.
//
// Commands and charts decide "is this instant in the past" against a
// clock; pinning it makes that decision, and therefore output, stable.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock pinned to the given instant.
func NewClock(at time.Time) *Clock {
	return &Clock{now: at}
}

// Now returns the pinned instant. Suitable as a time.Now replacement.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set pins the clock to a new instant.
func (c *Clock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}
