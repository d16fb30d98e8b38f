package attemptlog

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the newest entries in a bounded ring. Suitable for
// development and for the status endpoint of a single instance; use the
// postgres store when history must survive restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []*Entry
	capacity int
}

// NewMemoryStore creates a ring store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryStore{capacity: capacity}
}

// Append stores one entry, evicting the oldest past capacity.
func (s *MemoryStore) Append(_ context.Context, entry *Entry) error {
	cp := *entry

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, &cp)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	return nil
}

// List returns matching entries, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Intent != "" && e.Intent != filter.Intent {
			continue
		}
		if filter.Disposition != "" && e.Disposition != filter.Disposition {
			continue
		}
		if !filter.Since.IsZero() && e.CreatedAt.Before(filter.Since) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Stats summarizes the retained window.
func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{Dispositions: make(map[string]int64)}
	for _, e := range s.entries {
		stats.Total++
		stats.Dispositions[string(e.Disposition)]++
		if e.FallbackUsed {
			stats.Fallbacks++
		}
	}
	return stats, nil
}

// Purge drops entries older than cutoff.
func (s *MemoryStore) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var purged int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return purged, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
