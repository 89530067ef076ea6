// Package calibration implements the per-satellite calibration session
// state machine (C3): collecting a 1-metre RSSI reference with
// stability detection, per spec.md §4.3.
package calibration

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Status is the result of a status poll.
type Status struct {
	Count   int     `json:"count"`
	Elapsed float64 `json:"elapsed"`
	Stable  bool    `json:"stable"`
	Progress int    `json:"progress"`
	AvgRSSI float64 `json:"avg_rssi"`
}

type session struct {
	start    time.Time
	readings []int
}

// SignalSource supplies the "strongest recent raw RSSI" cache that C7
// (the ingestion router) maintains per satellite, along with the age of
// that sample.
type SignalSource interface {
	LastRawRSSI(satID string) (rssi int, age time.Duration, ok bool)
}

// Sessions tracks in-memory calibration sessions, one per satellite.
// Sessions are never persisted; commit is left to the (out-of-scope)
// admin layer per spec.md §9.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	source   SignalSource
	now      func() time.Time
}

// New returns a Sessions tracker reading raw samples from src.
func New(src SignalSource) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		source:   src,
		now:      time.Now,
	}
}

// Start creates or replaces the session for satID.
func (s *Sessions) Start(satID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[satID] = &session{start: s.now()}
}

// Status polls the session for satID, appending a fresh raw sample (if
// one is available within 10s) before computing stability/progress.
// Returns ok=false if no session has been started for satID.
func (s *Sessions) Status(satID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[satID]
	if !ok {
		return Status{}, false
	}

	if s.source != nil {
		if rssi, age, ok := s.source.LastRawRSSI(satID); ok && age <= 10*time.Second {
			sess.readings = append(sess.readings, rssi)
		}
	}

	now := s.now()
	elapsed := now.Sub(sess.start).Seconds()
	count := len(sess.readings)

	stable := elapsed >= 45
	if !stable && count >= 30 && elapsed > 15 {
		stable = stdevOfLast(sess.readings, 30) < 2.0
	}

	progress := int(math.Min(99, math.Floor(elapsed/25*100)))
	if stable {
		progress = 100
	}

	avg := avgRSSI(sess.readings, progress, count)

	return Status{
		Count:    count,
		Elapsed:  elapsed,
		Stable:   stable,
		Progress: progress,
		AvgRSSI:  avg,
	}, true
}

func avgRSSI(readings []int, progress, count int) float64 {
	if count == 0 {
		return -100
	}
	if progress == 100 && count > 10 {
		return trimmedMean(readings)
	}
	return mean(readings)
}

func mean(vals []int) float64 {
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

func trimmedMean(vals []int) float64 {
	sorted := make([]int, len(vals))
	copy(sorted, vals)
	sort.Ints(sorted)

	n := len(sorted)
	trim := int(float64(n) * 0.1)
	if trim < 1 {
		trim = 1
	}
	if 2*trim >= n {
		return mean(sorted)
	}
	trimmed := sorted[trim : n-trim]
	return mean(trimmed)
}

func stdevOfLast(readings []int, window int) float64 {
	n := len(readings)
	start := 0
	if n > window {
		start = n - window
	}
	sub := readings[start:]
	if len(sub) < 2 {
		return math.Inf(1)
	}
	m := mean(sub)
	var sumSq float64
	for _, v := range sub {
		d := float64(v) - m
		sumSq += d * d
	}
	// Sample standard deviation (Bessel's correction), matching
	// Python's statistics.stdev — see original_source/gatekeeper_ng/
	// admin/server.py's stability check.
	return math.Sqrt(sumSq / float64(len(sub)-1))
}
