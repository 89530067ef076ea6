package devicestate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetOrInitCreatesUnknownRoom(t *testing.T) {
	s := New()
	st := s.GetOrInit("AA:BB:CC:DD:EE:01")
	require.Equal(t, "unknown", st.Room)
	require.False(t, st.Present)
}

func TestGetOrInitIsIdempotent(t *testing.T) {
	s := New()
	a := s.GetOrInit("AA:BB:CC:DD:EE:01")
	a.Room = "Kitchen"
	b := s.GetOrInit("AA:BB:CC:DD:EE:01")
	require.Equal(t, "Kitchen", b.Room)
}

func TestUpdateSourceRefreshesLastSeen(t *testing.T) {
	s := New()
	s.GetOrInit("d1")
	t1 := time.Unix(1000, 0)
	s.UpdateSource("d1", "s1", Source{RawRSSI: -60, LastSeen: t1})

	st, _ := s.Get("d1")
	require.Equal(t, t1, st.LastSeen)
	require.Equal(t, -60, st.Sources["s1"].RawRSSI)
}

func TestUpdateSourceLastSeenIsMax(t *testing.T) {
	s := New()
	s.GetOrInit("d1")
	t1 := time.Unix(1000, 0)
	t2 := time.Unix(500, 0)
	s.UpdateSource("d1", "s1", Source{LastSeen: t1})
	s.UpdateSource("d1", "s2", Source{LastSeen: t2})

	st, _ := s.Get("d1")
	require.Equal(t, t1, st.LastSeen)
}

func TestMarkAbsentSetsSentinelDistance(t *testing.T) {
	s := New()
	s.GetOrInit("d1")
	s.SetRoom("d1", "Kitchen", -59, 1.0)
	s.MarkAbsent("d1")

	st, _ := s.Get("d1")
	require.False(t, st.Present)
	require.Equal(t, "not_home", st.Room)
	require.Equal(t, -1.0, st.Distance)
}
