// Package satellite implements satellite auto-registration and
// last-seen write throttling (C4), per spec.md §4.4.
package satellite

import (
	"sync"
	"time"

	"gatekeeper/internal/configstore"
)

const (
	unassignedRoom  = "Unassigned"
	writeThrottle   = 60 * time.Second
	defaultRefRSSI1 = -59
)

// Store is the subset of configstore.Store the registry needs.
type Store interface {
	ListSatellites() map[string]configstore.Satellite
	SaveSatellites(map[string]configstore.Satellite) error
}

// Registry tracks known satellites in memory and throttles persisted
// last-seen writes to at most one save per satellite per 60s.
type Registry struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	known map[string]configstore.Satellite
}

// New loads the persisted satellite set into memory.
func New(store Store) *Registry {
	r := &Registry{
		store: store,
		now:   time.Now,
		known: map[string]configstore.Satellite{},
	}
	for id, sat := range store.ListSatellites() {
		r.known[id] = sat
	}
	return r
}

// Observe registers satID if unseen, or refreshes its persisted
// last_seen if the existing record is older than 60s. Returns true if a
// save occurred.
func (r *Registry) Observe(satID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	sat, known := r.known[satID]
	if !known {
		sat = configstore.Satellite{
			Room:      unassignedRoom,
			RefRSSI1M: defaultRefRSSI1,
			LastSeen:  now.Unix(),
		}
		r.known[satID] = sat
		r.persist()
		return true
	}

	if now.Sub(time.Unix(sat.LastSeen, 0)) >= writeThrottle {
		sat.LastSeen = now.Unix()
		r.known[satID] = sat
		r.persist()
		return true
	}
	return false
}

// Get returns the in-memory record for satID.
func (r *Registry) Get(satID string) (configstore.Satellite, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sat, ok := r.known[satID]
	return sat, ok
}

// RoomName returns the effective zoning room name for satID: its
// configured room, or "Sat:<id>" when unassigned.
func (r *Registry) RoomName(satID string) string {
	sat, ok := r.Get(satID)
	if !ok || sat.Room == unassignedRoom {
		return "Sat:" + satID
	}
	return sat.Room
}

// persist must be called with mu held.
func (r *Registry) persist() {
	snapshot := make(map[string]configstore.Satellite, len(r.known))
	for k, v := range r.known {
		snapshot[k] = v
	}
	_ = r.store.SaveSatellites(snapshot)
}
