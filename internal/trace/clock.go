package trace

import "sync/atomic"

// Clock is a monotonic step counter.
//
// The first call to Next returns 1. Safe for concurrent use, though a
// Tracer only ever calls it from one goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments and returns the next step number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued step number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
