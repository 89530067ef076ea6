package signalproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferFirstSampleSeedsEMA(t *testing.T) {
	b := NewBuffer()
	got := b.Add(-60)
	require.InDelta(t, -60.0, got, 1e-9)
}

func TestBufferConvergesToConstantInput(t *testing.T) {
	b := NewBuffer()
	var last float64
	for i := 0; i < 50; i++ {
		last = b.Add(-55)
	}
	require.InDelta(t, -55.0, last, 1e-3)
}

func TestBufferWindowDropsOldest(t *testing.T) {
	b := NewBuffer()
	for _, v := range []int{-50, -50, -50, -50, -50, -50, -50} {
		b.Add(v)
	}
	// Push a strong outlier; the 7-wide median window is still -50, so
	// the EMA does not move at all.
	got := b.Add(-90)
	require.InDelta(t, -50.0, got, 1e-9)
	require.Greater(t, got, -90.0)

	// Three more -90 samples push three -50s out of the window: the
	// median becomes -90 only because the oldest samples were dropped
	// (an 11-sample window would still have median -50).
	for i := 0; i < 2; i++ {
		b.Add(-90)
	}
	got = b.Add(-90)
	require.InDelta(t, -58.0, got, 1e-9) // 0.2*-90 + 0.8*-50
}

func TestBufferClearResetsState(t *testing.T) {
	b := NewBuffer()
	b.Add(-60)
	b.Clear()
	got := b.Add(-70)
	require.InDelta(t, -70.0, got, 1e-9)
}

func TestDistanceZeroRSSIIsSentinel(t *testing.T) {
	require.Equal(t, -1.0, Distance(0, DefaultTxPower))
}

func TestDistanceAtReferenceIsOneMetre(t *testing.T) {
	require.InDelta(t, 1.0, Distance(-59, -59), 1e-9)
}

func TestDistanceWeakerSignalIsFarther(t *testing.T) {
	near := Distance(-59, -59)
	far := Distance(-80, -59)
	require.Greater(t, far, near)
}
