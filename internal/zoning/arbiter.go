// Package zoning implements the multi-source room arbitration algorithm
// (C6): distance-based winner selection with hysteresis and debounce,
// per spec.md §4.6. Design Notes §9 is explicit that the authoritative
// algorithm arbitrates on distance, not smoothed-RSSI offset
// normalisation as earlier source revisions did.
package zoning

import (
	"time"

	"gatekeeper/internal/devicestate"
)

const (
	unknownRoom     = "unknown"
	unassignedRoom  = "Unassigned"
	notHomeRoom     = "not_home"
	heartbeatPeriod = 30 * time.Second
)

// Config holds the arbiter's reconfigurable parameters.
type Config struct {
	AbsenceTimeout time.Duration // default 60s
	HysteresisDist float64       // default 0.8m
	DebounceTime   time.Duration // default 5.0s
}

// DefaultConfig returns spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{
		AbsenceTimeout: 60 * time.Second,
		HysteresisDist: 0.8,
		DebounceTime:   5 * time.Second,
	}
}

// pending tracks the zoning sub-state for one device (spec.md §3).
type pending struct {
	room  string
	since time.Time
}

// Arbiter holds per-device pending-room state across evaluations.
type Arbiter struct {
	cfg     Config
	now     func() time.Time
	pending map[string]*pending
}

// New returns an Arbiter with the given configuration.
func New(cfg Config) *Arbiter {
	return &Arbiter{cfg: cfg, now: time.Now, pending: map[string]*pending{}}
}

// Publisher is called by Evaluate whenever the device's state should be
// republished (room change or heartbeat).
type Publisher interface {
	PublishState(id string, st *devicestate.State)
}

// Evaluate re-arbitrates room assignment for a known device after a
// source update, per spec.md §4.6. store must already contain the
// device's current State (via GetOrInit).
func (a *Arbiter) Evaluate(id string, store *devicestate.Store, pub Publisher) {
	st, ok := store.Get(id)
	if !ok {
		return
	}

	now := a.now()

	alive := aliveSources(st, now, a.cfg.AbsenceTimeout)
	if len(alive) == 0 {
		return
	}

	best := pickBest(alive)
	candidateRoom := best.src.RoomName
	candidateDist := best.src.Distance
	candidateRSSI := best.src.SmoothRSSI

	// Step 4: immediate assignment if currently unknown/unassigned/away.
	if (st.Room == unknownRoom || st.Room == unassignedRoom || st.Room == notHomeRoom) && candidateRoom != unassignedRoom {
		store.SetRoom(id, candidateRoom, candidateRSSI, candidateDist)
		delete(a.pending, id)
		a.publish(id, store, pub)
		return
	}

	// Step 5: evaluate current room's alive sources.
	curMinDist, curBestRSSI, curAlive := bestInRoom(alive, st.Room)
	if !curAlive {
		// Current room lost: switch immediately.
		store.SetRoom(id, candidateRoom, candidateRSSI, candidateDist)
		delete(a.pending, id)
		a.publish(id, store, pub)
		return
	}

	roomChanged := false
	if candidateDist < curMinDist-a.cfg.HysteresisDist {
		p, hasPending := a.pending[id]
		if hasPending && p.room == candidateRoom && now.Sub(p.since) >= a.cfg.DebounceTime {
			store.SetRoom(id, candidateRoom, candidateRSSI, candidateDist)
			delete(a.pending, id)
			roomChanged = true
			curMinDist, curBestRSSI = candidateDist, candidateRSSI
		} else if !hasPending || p.room != candidateRoom {
			a.pending[id] = &pending{room: candidateRoom, since: now}
		}
	} else if candidateRoom == st.Room {
		delete(a.pending, id)
	}
	// else: partial evidence, leave pending untouched.

	// Step 7: refresh fused rssi/distance regardless of room change.
	if !roomChanged {
		store.SetRoom(id, st.Room, curBestRSSI, curMinDist)
	}

	if roomChanged || now.Sub(st.LastPublished) > heartbeatPeriod {
		a.publish(id, store, pub)
	}
}

func (a *Arbiter) publish(id string, store *devicestate.Store, pub Publisher) {
	st, ok := store.Get(id)
	if !ok {
		return
	}
	now := a.now()
	store.SetLastPublished(id, now)
	if pub != nil {
		pub.PublishState(id, st)
	}
}

type aliveSource struct {
	satID string
	src   devicestate.Source
}

func aliveSources(st *devicestate.State, now time.Time, timeout time.Duration) []aliveSource {
	out := make([]aliveSource, 0, len(st.Sources))
	for satID, src := range st.Sources {
		if now.Sub(src.LastSeen) < timeout {
			out = append(out, aliveSource{satID: satID, src: src})
		}
	}
	return out
}

// pickBest selects the alive source with the smallest distance; ties
// broken by higher smooth_rssi, then lexicographically smaller sat id.
func pickBest(alive []aliveSource) aliveSource {
	best := alive[0]
	for _, a := range alive[1:] {
		if a.src.Distance < best.src.Distance {
			best = a
			continue
		}
		if a.src.Distance == best.src.Distance {
			if a.src.SmoothRSSI > best.src.SmoothRSSI {
				best = a
				continue
			}
			if a.src.SmoothRSSI == best.src.SmoothRSSI && a.satID < best.satID {
				best = a
			}
		}
	}
	return best
}

// bestInRoom returns the smallest distance and corresponding rssi among
// alive sources whose room matches room. alive=false if none match.
func bestInRoom(sources []aliveSource, room string) (dist, rssi float64, alive bool) {
	for _, a := range sources {
		if a.src.RoomName != room {
			continue
		}
		if !alive || a.src.Distance < dist {
			dist = a.src.Distance
			rssi = a.src.SmoothRSSI
			alive = true
		} else if a.src.Distance == dist && a.src.SmoothRSSI > rssi {
			rssi = a.src.SmoothRSSI
		}
	}
	return dist, rssi, alive
}
