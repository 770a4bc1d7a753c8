package schedule

import (
	"sync"
	"time"
)

// Store holds the active weekly irrigation plan.
//
// The plan is replaced wholesale on each ingestion; individual slots are
// never mutated in place. Readers always observe either the previous
// complete plan or the new complete plan, never a mix.
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	// plan maps each configured day to its slot. Days absent from the
	// map have no irrigation planned. The map reference is swapped on
	// ReplaceAll and never written through after publication.
	plan map[Day]Slot

	// updatedAt is when the current plan was installed (zero if none).
	updatedAt time.Time
}

// NewStore creates an empty Store with no plan installed.
func NewStore() *Store {
	return &Store{
		plan: make(map[Day]Slot),
	}
}

// ReplaceAll atomically installs a new weekly plan, discarding the old one.
//
// The given map is copied; the caller keeps ownership of its argument.
// Days absent from the map are absent from the installed plan.
func (s *Store) ReplaceAll(plan map[Day]Slot) {
	next := make(map[Day]Slot, len(plan))
	for day, slot := range plan {
		next[day] = slot
	}

	s.mu.Lock()
	s.plan = next
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// Get returns the slot for a day and whether one is configured.
func (s *Store) Get(day Day) (Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.plan[day]
	return slot, ok
}

// Snapshot returns a copy of the current plan.
//
// The returned map is owned by the caller; mutating it does not affect
// the store.
func (s *Store) Snapshot() map[Day]Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Day]Slot, len(s.plan))
	for day, slot := range s.plan {
		out[day] = slot
	}
	return out
}

// Len returns the number of days with a configured slot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plan)
}

// UpdatedAt returns when the current plan was installed.
// The zero time means no plan has been ingested yet.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
