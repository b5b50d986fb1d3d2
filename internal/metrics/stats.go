package metrics

import (
	"slices"
	"sync"
	"time"
)

// DefaultStatsCapacity bounds how many recent analyses LatencyStats retains.
const DefaultStatsCapacity = 1024

// StatsSnapshot summarises the analyses retained by LatencyStats, in milliseconds.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

type observation struct {
	at time.Time
	ms int64
}

// LatencyStats is a fixed-size ring of recent analysis durations. Entries
// older than the window are ignored when summarising; once the ring is full
// the oldest entry is overwritten.
type LatencyStats struct {
	mu     sync.Mutex
	ring   []observation
	next   int
	filled bool
	window time.Duration
	now    func() time.Time
}

func NewLatencyStats(window time.Duration) *LatencyStats {
	return newLatencyStats(window, DefaultStatsCapacity, time.Now)
}

func newLatencyStats(window time.Duration, capacity int, now func() time.Time) *LatencyStats {
	if window <= 0 {
		window = time.Hour
	}
	if capacity <= 0 {
		capacity = DefaultStatsCapacity
	}
	return &LatencyStats{ring: make([]observation, capacity), window: window, now: now}
}

// Record stores one analysis duration. Negative durations count as zero.
func (s *LatencyStats) Record(d time.Duration) {
	obs := observation{at: s.now(), ms: max(d.Milliseconds(), 0)}

	s.mu.Lock()
	s.ring[s.next] = obs
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.filled = true
	}
	s.mu.Unlock()
}

func (s *LatencyStats) Snapshot() StatsSnapshot {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	n := s.next
	if s.filled {
		n = len(s.ring)
	}
	values := make([]int64, 0, n)
	for _, obs := range s.ring[:n] {
		if !obs.at.Before(cutoff) {
			values = append(values, obs.ms)
		}
	}
	s.mu.Unlock()

	if len(values) == 0 {
		return StatsSnapshot{}
	}
	slices.Sort(values)

	var sum int64
	for _, v := range values {
		sum += v
	}
	return StatsSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: quantile(values, 0.50),
		P95Ms: quantile(values, 0.95),
	}
}

// quantile interpolates between neighbouring ranks of a sorted, non-empty slice.
func quantile(sorted []int64, q float64) float64 {
	pos := float64(len(sorted)-1) * q
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*(pos-float64(lo))
}
