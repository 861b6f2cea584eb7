package primitives

import "sync"

// Sequence is the single owner of a monotonically increasing counter.
// Every transaction id and registration order stamp comes out of one of
// these; nothing else may read or bump the counter.
type Sequence struct {
	mu   sync.Mutex
	next int64
}

func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next value, starting from 1.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Current returns the most recently issued value without advancing it.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// LogicalClock is the owner of the logical time used by the timestamp
// ordering and optimistic validators. Each Tick advances time by exactly
// one; the zero time is reserved for never-accessed objects.
type LogicalClock struct {
	mu  sync.Mutex
	now float64
}

func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// Tick advances the clock by one and returns the new time.
func (c *LogicalClock) Tick() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now++
	return c.now
}

// Now returns the current time without advancing it.
func (c *LogicalClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
