package calibration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rssi int
	age  time.Duration
	ok   bool
}

func (f fakeSource) LastRawRSSI(satID string) (int, time.Duration, bool) {
	return f.rssi, f.age, f.ok
}

func TestStatusUnknownSession(t *testing.T) {
	s := New(nil)
	_, ok := s.Status("s1")
	require.False(t, ok)
}

func TestStatusIgnoresStaleSample(t *testing.T) {
	s := New(fakeSource{rssi: -59, age: 20 * time.Second, ok: true})
	s.now = func() time.Time { return time.Unix(0, 0) }
	s.Start("s1")
	st, ok := s.Status("s1")
	require.True(t, ok)
	require.Equal(t, 0, st.Count)
}

func TestStatusAppendsFreshSample(t *testing.T) {
	s := New(fakeSource{rssi: -59, age: 1 * time.Second, ok: true})
	base := time.Unix(1000, 0)
	s.now = func() time.Time { return base }
	s.Start("s1")
	st, ok := s.Status("s1")
	require.True(t, ok)
	require.Equal(t, 1, st.Count)
	require.False(t, st.Stable)
}

func TestStatusStableAtElapsed45(t *testing.T) {
	base := time.Unix(2000, 0)
	cur := base
	s := New(fakeSource{rssi: -59, age: 1 * time.Second, ok: true})
	s.now = func() time.Time { return cur }
	s.Start("s1")

	cur = base.Add(45 * time.Second)
	st, ok := s.Status("s1")
	require.True(t, ok)
	require.True(t, st.Stable)
	require.Equal(t, 100, st.Progress)
}

func TestStatusProgressFormula(t *testing.T) {
	base := time.Unix(3000, 0)
	cur := base
	s := New(nil)
	s.now = func() time.Time { return cur }
	s.Start("s1")

	cur = base.Add(10 * time.Second)
	st, _ := s.Status("s1")
	require.Equal(t, 40, st.Progress) // floor(10/25*100) = 40
}

func TestTrimmedMeanDropsExtremes(t *testing.T) {
	readings := make([]int, 0, 20)
	for i := 0; i < 18; i++ {
		readings = append(readings, -59)
	}
	readings = append(readings, -200, 100) // extreme outliers at each end
	got := trimmedMean(readings)
	require.InDelta(t, -59.0, got, 0.5)
}
