package engine

import "sync/atomic"

// IterationSource issues frame iterations. Next must return a value strictly
// greater than every value it returned before.
type IterationSource interface {
	Next() uint64
	Current() uint64
}

// Clock is the monotonic logical counter that stamps every frame.
//
// The iteration is the only notion of "which frame is newest" the engine
// has. Sequential runs capture it when a step is invoked and compare it with
// the live value to detect that a newer frame superseded them. Wall-clock
// time is never used for ordering.
//
// Clock is safe for concurrent use, so one instance can be shared by several
// drivers through WithClock when a host wants a single ordering across
// tracks.
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next iteration is start+1.
// Used by replay to resume from a recorded position.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new iteration.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// Current returns the last issued iteration without incrementing.
func (c *Clock) Current() uint64 {
	return c.seq.Load()
}
