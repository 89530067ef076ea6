package engine

import (
	"time"

	"gatekeeper/internal/devicestate"
)

const maintenanceTick = 2 * time.Second

// maintenanceTick is the Maintenance Loop (C8) body: detects timed-out
// devices and re-arbitrates devices whose current room has no alive
// source. Called only from the engine's single cooperative loop (Run,
// in loop.go) so it never races with ingestion over current_state or
// zoning_state (spec.md §4.8, §5).
func (e *Engine) maintenanceTick() {
	now := time.Now()

	type pair struct {
		id string
		st *devicestate.State
	}
	var toEvaluate []pair
	var toAbsent []string

	e.states.Range(func(id string, st *devicestate.State) {
		if st.Present && now.Sub(st.LastSeen) > e.cfg.TimeoutInterval {
			toAbsent = append(toAbsent, id)
			return
		}
		if !st.Present {
			return
		}
		if !hasAliveSourceInRoom(st, e.cfg.Zoning.AbsenceTimeout, now) {
			toEvaluate = append(toEvaluate, pair{id: id, st: st})
		}
	})

	for _, id := range toAbsent {
		e.states.MarkAbsent(id)
		e.publishIfKnown(id)
	}
	for _, p := range toEvaluate {
		e.reEvaluate(p.id)
	}
}

func hasAliveSourceInRoom(st *devicestate.State, absenceTimeout time.Duration, now time.Time) bool {
	for _, src := range st.Sources {
		if src.RoomName == st.Room && now.Sub(src.LastSeen) < absenceTimeout {
			return true
		}
	}
	return false
}

func (e *Engine) publishIfKnown(idKey string) {
	device, known := e.lookupDevice(idKey)
	if !known || e.publisher == nil {
		return
	}
	st, ok := e.states.Get(idKey)
	if !ok {
		return
	}
	e.states.SetLastPublished(idKey, time.Now())
	e.publisher.PublishState(device, st)
}

func (e *Engine) reEvaluate(idKey string) {
	device, known := e.lookupDevice(idKey)
	if !known {
		return
	}
	e.arbiter.Evaluate(idKey, e.states, publisherAdapter{e: e, device: device})
}
