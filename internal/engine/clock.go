package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall time to the reducer. Every timestamp the engine
// writes (notification times, export times, pending keys) comes from it,
// so tests pin it to a fixed instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sequence is a monotonic counter stamping processed commands.
//
// Thread-safety: safe for concurrent use, although only the Run goroutine
// calls Next.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
