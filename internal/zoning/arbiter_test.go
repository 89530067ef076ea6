package zoning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gatekeeper/internal/devicestate"
)

type recordingPublisher struct {
	calls int
	rooms []string
}

func (r *recordingPublisher) PublishState(id string, st *devicestate.State) {
	r.calls++
	r.rooms = append(r.rooms, st.Room)
}

func TestImmediateAssignmentFromUnknown(t *testing.T) {
	store := devicestate.New()
	store.GetOrInit("d1")
	now := time.Unix(10_000, 0)
	store.UpdateSource("d1", "s1", devicestate.Source{
		SmoothRSSI: -60, Distance: 1.0, RoomName: "Kitchen", LastSeen: now,
	})

	a := New(DefaultConfig())
	a.now = func() time.Time { return now }
	pub := &recordingPublisher{}
	a.Evaluate("d1", store, pub)

	st, _ := store.Get("d1")
	require.Equal(t, "Kitchen", st.Room)
	require.True(t, st.Present)
	require.Equal(t, 1, pub.calls)
}

func TestHysteresisSuppressesSmallMargin(t *testing.T) {
	store := devicestate.New()
	store.GetOrInit("d1")
	t0 := time.Unix(20_000, 0)

	a := New(DefaultConfig())
	a.now = func() time.Time { return t0 }
	store.UpdateSource("d1", "s1", devicestate.Source{Distance: 1.0, RoomName: "Kitchen", LastSeen: t0})
	a.Evaluate("d1", store, nil)

	t1 := t0.Add(1 * time.Second)
	a.now = func() time.Time { return t1 }
	store.UpdateSource("d1", "s1", devicestate.Source{Distance: 1.0, RoomName: "Kitchen", LastSeen: t1})
	store.UpdateSource("d1", "s2", devicestate.Source{Distance: 0.9, RoomName: "Bedroom", LastSeen: t1})
	a.Evaluate("d1", store, nil)

	st, _ := store.Get("d1")
	require.Equal(t, "Kitchen", st.Room)
	require.Nil(t, a.pending["d1"])
}

func TestDebouncedSwitchRequiresSustainedLead(t *testing.T) {
	store := devicestate.New()
	store.GetOrInit("d1")
	cfg := DefaultConfig()
	a := New(cfg)

	t0 := time.Unix(30_000, 0)
	a.now = func() time.Time { return t0 }
	store.UpdateSource("d1", "s1", devicestate.Source{Distance: 1.0, RoomName: "Kitchen", LastSeen: t0})
	a.Evaluate("d1", store, nil)

	// Candidate s2 (Bedroom) beats Kitchen's distance by > hysteresis for
	// several evaluations, but debounce_time has not elapsed yet.
	t1 := t0.Add(2 * time.Second)
	a.now = func() time.Time { return t1 }
	store.UpdateSource("d1", "s1", devicestate.Source{Distance: 1.0, RoomName: "Kitchen", LastSeen: t1})
	store.UpdateSource("d1", "s2", devicestate.Source{Distance: 0.15, RoomName: "Bedroom", LastSeen: t1})
	a.Evaluate("d1", store, nil)

	st, _ := store.Get("d1")
	require.Equal(t, "Kitchen", st.Room, "must not switch before debounce elapses")
	require.NotNil(t, a.pending["d1"])
	require.Equal(t, "Bedroom", a.pending["d1"].room)

	// Just under the debounce window: still no switch.
	t2 := t0.Add(2*time.Second + cfg.DebounceTime - time.Second)
	a.now = func() time.Time { return t2 }
	store.UpdateSource("d1", "s1", devicestate.Source{Distance: 1.0, RoomName: "Kitchen", LastSeen: t2})
	store.UpdateSource("d1", "s2", devicestate.Source{Distance: 0.15, RoomName: "Bedroom", LastSeen: t2})
	a.Evaluate("d1", store, nil)
	st, _ = store.Get("d1")
	require.Equal(t, "Kitchen", st.Room)

	// At/after debounce window: switches.
	t3 := t1.Add(cfg.DebounceTime)
	a.now = func() time.Time { return t3 }
	store.UpdateSource("d1", "s1", devicestate.Source{Distance: 1.0, RoomName: "Kitchen", LastSeen: t3})
	store.UpdateSource("d1", "s2", devicestate.Source{Distance: 0.15, RoomName: "Bedroom", LastSeen: t3})
	a.Evaluate("d1", store, nil)
	st, _ = store.Get("d1")
	require.Equal(t, "Bedroom", st.Room)
}

func TestCurrentRoomLostSwitchesImmediately(t *testing.T) {
	store := devicestate.New()
	store.GetOrInit("d1")
	a := New(DefaultConfig())

	t0 := time.Unix(40_000, 0)
	a.now = func() time.Time { return t0 }
	store.UpdateSource("d1", "s1", devicestate.Source{Distance: 1.0, RoomName: "Kitchen", LastSeen: t0})
	a.Evaluate("d1", store, nil)

	// s1 goes stale (absence_timeout default 60s), only s2 remains alive.
	t1 := t0.Add(70 * time.Second)
	a.now = func() time.Time { return t1 }
	store.UpdateSource("d1", "s2", devicestate.Source{Distance: 3.0, RoomName: "Bedroom", LastSeen: t1})
	a.Evaluate("d1", store, nil)

	st, _ := store.Get("d1")
	require.Equal(t, "Bedroom", st.Room)
}

func TestNoAliveSourcesIsNoOp(t *testing.T) {
	store := devicestate.New()
	store.GetOrInit("d1")
	a := New(DefaultConfig())
	a.Evaluate("d1", store, nil) // no sources at all
	st, _ := store.Get("d1")
	require.Equal(t, "unknown", st.Room)
}
