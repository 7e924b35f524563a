package testutil

import (
	"sync"
	"time"
)

// TimestampLayout is the ISO-8601 UTC form used for event timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultEpoch is the first instant a DeterministicClock reports.
var DefaultEpoch = time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

// DeterministicClock provides a thread-safe monotonic logical clock for tests
// and scenarios, with a matching wall-clock rendering so that generated events
// carry reproducible timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	seq   int64
	epoch time.Time
	step  time.Duration
}

// NewDeterministicClock creates a clock at seq 0 starting at DefaultEpoch and
// advancing one second per tick.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(DefaultEpoch, time.Second)
}

// NewDeterministicClockAt creates a clock whose seq n maps to epoch + n*step.
func NewDeterministicClockAt(epoch time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{epoch: epoch.UTC(), step: step}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Stamp advances the clock and returns the timestamp for the new seq.
func (c *DeterministicClock) Stamp() string {
	seq := c.Next()
	return c.epoch.Add(time.Duration(seq) * c.step).Format(TimestampLayout)
}

// Reset resets the clock to 0.
//
// Used for test reuse. After Reset(), the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
