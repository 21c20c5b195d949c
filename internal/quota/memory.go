package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sliding windows in process memory behind one mutex. Valid
// for tests and single-instance deployments; multi-instance deployments need
// the shared document store.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

// Admit implements the atomic filter-count-append contract under the mutex.
func (s *MemoryStore) Admit(_ context.Context, fingerprint string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := make([]time.Time, 0, limit)
	for _, ts := range s.windows[fingerprint] {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}

	allowed := len(kept) < limit
	if allowed {
		kept = append(kept, now)
	}
	s.windows[fingerprint] = kept

	state := WindowState{Count: len(kept), Allowed: allowed}
	if len(kept) > 0 {
		state.Oldest = kept[0]
	}
	return state, nil
}

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}
