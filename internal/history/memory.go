package history

import (
	"context"
	"sync"
	"time"
)

// DefaultCapacity is the ring size of a MemoryStore.
const DefaultCapacity = 256

// MemoryStore keeps the most recent records in a fixed ring buffer.
type MemoryStore struct {
	mu    sync.Mutex
	ring  []Record
	next  int
	count int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a ring of the given capacity. Non-positive values
// use DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{ring: make([]Record, capacity)}
}

// Append implements Store. The oldest record is overwritten when full.
func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = rec
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > s.count {
		n = s.count
	}
	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out, nil
}

// Prune implements Store.
func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Rebuild oldest-first, keeping only fresh records.
	kept := make([]Record, 0, s.count)
	for i := s.count; i >= 1; i-- {
		rec := s.ring[(s.next-i+len(s.ring))%len(s.ring)]
		if !rec.StartedAt.Before(before) {
			kept = append(kept, rec)
		}
	}
	removed := s.count - len(kept)

	clear(s.ring)
	copy(s.ring, kept)
	s.count = len(kept)
	s.next = len(kept) % len(s.ring)
	return removed, nil
}

// Cap returns the ring capacity.
func (s *MemoryStore) Cap() int {
	return len(s.ring)
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
