package testutil

import "sync"

// DeterministicClock is a resettable iteration source for tests.
//
// Unlike engine.Clock, DeterministicClock can be reset or positioned, so
// the same timeline can be evaluated twice with identical iteration values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq uint64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{seq: 0}
}

// Next increments and returns the next iteration.
func (c *DeterministicClock) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current iteration without incrementing.
func (c *DeterministicClock) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset resets the clock to 0. After Reset(), the next call to Next()
// returns 1.
func (c *DeterministicClock) Reset() {
	c.Set(0)
}

// Set positions the clock so that the next call to Next() returns n+1.
func (c *DeterministicClock) Set(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = n
}
