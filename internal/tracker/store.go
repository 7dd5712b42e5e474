package tracker

import (
	"sync"
	"time"
)

// Store is a bounded ring of historical resource samples. Appends evict the
// oldest entry on overflow; insertion order is chronological and timestamps
// are strictly increasing. The sampler loop is the only writer; readers get
// copies and never block the loop for long.
type Store struct {
	mu    sync.RWMutex
	data  []ResourceSample
	head  int
	count int
	size  int
}

// NewStore returns a store holding at most capacity samples. Capacities
// below 2 are raised to 2 so a rate delta can always be derived.
func NewStore(capacity int) *Store {
	if capacity < 2 {
		capacity = 2
	}
	return &Store{data: make([]ResourceSample, capacity), size: capacity}
}

// Append records a sample, evicting the oldest on overflow. Samples whose
// timestamp does not advance past the newest held entry are rejected, which
// keeps the strictly-increasing invariant even if a resolver hands back a
// stale clock reading.
func (s *Store) Append(sample ResourceSample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count > 0 {
		newest := s.data[(s.head-1+s.size)%s.size]
		if !sample.Timestamp.After(newest.Timestamp) {
			return false
		}
	}

	s.data[s.head] = sample
	s.head = (s.head + 1) % s.size
	if s.count < s.size {
		s.count++
	}
	return true
}

// Latest returns the newest sample, if any.
func (s *Store) Latest() (ResourceSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return ResourceSample{}, false
	}
	return s.data[(s.head-1+s.size)%s.size], true
}

// Window returns the samples covering the given duration back from the
// newest entry, oldest first. When history is shorter than d, everything
// held is returned; partial results are valid and the caller can report the
// span actually covered via Span.
func (s *Store) Window(d time.Duration) []ResourceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return nil
	}

	newest := s.data[(s.head-1+s.size)%s.size]
	cutoff := newest.Timestamp.Add(-d)

	start := (s.head - s.count + s.size) % s.size
	var result []ResourceSample
	for i := 0; i < s.count; i++ {
		sample := s.data[(start+i)%s.size]
		if sample.Timestamp.Before(cutoff) {
			continue
		}
		result = append(result, sample)
	}
	return result
}

// Span reports the duration between the oldest and newest held samples.
func (s *Store) Span() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count < 2 {
		return 0
	}
	newest := s.data[(s.head-1+s.size)%s.size]
	oldest := s.data[(s.head-s.count+s.size)%s.size]
	return newest.Timestamp.Sub(oldest.Timestamp)
}

// Len returns the number of samples held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Capacity returns the maximum number of samples held.
func (s *Store) Capacity() int {
	return s.size
}
