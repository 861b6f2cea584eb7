package primitives

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceStartsAtOne(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, int64(0), s.Current())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(2), s.Current())
}

func TestSequenceConcurrentNextIsUnique(t *testing.T) {
	s := NewSequence()

	const goroutines, perGoroutine = 8, 100
	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				v := s.Next()
				mu.Lock()
				assert.False(t, seen[v], "value %d issued twice", v)
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), s.Current())
}

func TestLogicalClockTicks(t *testing.T) {
	c := NewLogicalClock()
	assert.Equal(t, 0.0, c.Now())
	assert.Equal(t, 1.0, c.Tick())
	assert.Equal(t, 2.0, c.Tick())
	assert.Equal(t, 2.0, c.Now())
}

func TestStringRenderings(t *testing.T) {
	assert.Equal(t, "TID-7", TransactionID(7).String())
	assert.Equal(t, "READ", Read.String())
	assert.Equal(t, "WRITE", Write.String())
	assert.Equal(t, "ACTIVE", Active.String())
	assert.Equal(t, "COMMITTED", Committed.String())
	assert.Equal(t, "ABORTED", Aborted.String())
}
