// Package devicestate is the pure data container for per-device fused
// presence state (C5), per spec.md §4.5. It carries no zoning or
// publication policy.
package devicestate

import (
	"sync"
	"time"
)

// Source is the per-(device,satellite) sub-state (spec.md §3).
type Source struct {
	RawRSSI    int
	SmoothRSSI float64
	Distance   float64
	LastSeen   time.Time
	RoomName   string
}

// State is the fused presence state for one known device.
type State struct {
	Present       bool
	Room          string
	RSSI          float64
	Distance      float64
	LastSeen      time.Time
	LastPublished time.Time
	Sources       map[string]Source // keyed by satellite id
}

// Store owns current_state: a map of device identifier -> State,
// mutated only from the engine's single cooperative loop (spec.md §5,
// §9). The mutex exists for defensive safety against accidental
// cross-goroutine access, not as a concurrency design point.
type Store struct {
	mu     sync.Mutex
	states map[string]*State
}

// New returns an empty device state store.
func New() *Store {
	return &Store{states: map[string]*State{}}
}

// GetOrInit lazily creates a fused-state entry for id on first
// observation and returns it.
func (s *Store) GetOrInit(id string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		st = &State{Room: "unknown", Sources: map[string]Source{}}
		s.states[id] = st
	}
	return st
}

// Get returns the existing state for id, if any, without creating one.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

// UpdateSource sets the source sub-state for (id, satID) and refreshes
// state.LastSeen to the max of all source last_seen values.
func (s *Store) UpdateSource(id, satID string, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[id]
	if st == nil {
		return
	}
	st.Sources[satID] = src
	if src.LastSeen.After(st.LastSeen) {
		st.LastSeen = src.LastSeen
	}
}

// SetRoom sets the fused room/rssi/distance and marks the device
// present.
func (s *Store) SetRoom(id, room string, rssi, dist float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[id]
	if st == nil {
		return
	}
	st.Room = room
	st.RSSI = rssi
	st.Distance = dist
	st.Present = true
}

// MarkAbsent sets present=false, room="not_home", distance=-1 per
// spec.md §4.8.
func (s *Store) MarkAbsent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[id]
	if st == nil {
		return
	}
	st.Present = false
	st.Room = "not_home"
	st.Distance = -1
}

// SetLastPublished records the last publish timestamp for id.
func (s *Store) SetLastPublished(id string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[id]
	if st == nil {
		return
	}
	st.LastPublished = ts
}

// Range calls fn for every (id, *State) pair. fn must not mutate the
// store.
func (s *Store) Range(fn func(id string, st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range s.states {
		fn(id, st)
	}
}

// Len returns the number of tracked devices.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
