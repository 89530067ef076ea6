// Package signalproc implements per-(satellite, device) RSSI smoothing
// (C1 Signal Buffer) and the log-distance path-loss model (C2).
package signalproc

import "sort"

const (
	medianWindow = 7
	emaAlpha     = 0.2
)

// Buffer is a median-then-EMA smoothing pipeline for one (satellite,
// device) stream. Mixing samples from different streams into a single
// Buffer corrupts the smoothing, so callers key one Buffer per pair.
type Buffer struct {
	window []int
	ema    float64
	hasEMA bool
}

// NewBuffer returns an empty signal buffer.
func NewBuffer() *Buffer {
	return &Buffer{window: make([]int, 0, medianWindow)}
}

// Add appends a raw RSSI sample and returns the updated EMA value.
func (b *Buffer) Add(raw int) float64 {
	b.window = append(b.window, raw)
	if len(b.window) > medianWindow {
		b.window = b.window[1:]
	}

	median := medianOf(b.window)

	if !b.hasEMA {
		b.ema = median
		b.hasEMA = true
	} else {
		b.ema = emaAlpha*median + (1-emaAlpha)*b.ema
	}
	return b.ema
}

// Clear resets the buffer to its empty state.
func (b *Buffer) Clear() {
	b.window = b.window[:0]
	b.ema = 0
	b.hasEMA = false
}

func medianOf(vals []int) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := make([]int, n)
	copy(sorted, vals)
	sort.Ints(sorted)

	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2.0
}
