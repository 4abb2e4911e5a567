package wal

import "sync/atomic"

// Clock is the monotonic logical clock that stamps journal records.
//
// All ordering in the log uses seq numbers from this clock, never wall
// time, so replay produces identical order regardless of when it runs.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the single-writer design means only one goroutine typically
// calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence
// number. Used when resuming an existing log or a post-rotation
// segment.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
// This is the watermark for checkpointing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
