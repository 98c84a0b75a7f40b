// Package extract keeps rolling latency statistics for collector runs.
package extract

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type sample struct {
	timestamp time.Time
	elapsedUs int64
	calls     int
	failed    bool
}

// StatsSnapshot is a point-in-time aggregate of one collector's per-document
// OnToken time.
type StatsSnapshot struct {
	Collector string  `json:"collector"`
	Documents int     `json:"documents"`
	Calls     int     `json:"calls"`
	Failures  int     `json:"failures"`
	MinUs     int64   `json:"min_us"`
	MaxUs     int64   `json:"max_us"`
	AvgUs     float64 `json:"avg_us"`
	P50Us     float64 `json:"p50_us"`
	P95Us     float64 `json:"p95_us"`
	P99Us     float64 `json:"p99_us"`
}

// CollectorStats tracks recent collector timings within a rolling window.
type CollectorStats struct {
	mu      sync.Mutex
	samples map[string][]sample
	maxAge  time.Duration
}

func NewCollectorStats(maxAge time.Duration) *CollectorStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &CollectorStats{
		samples: make(map[string][]sample),
		maxAge:  maxAge,
	}
}

// Record adds one document's timing for collector.
func (s *CollectorStats) Record(collector string, elapsed time.Duration, calls int, failed bool) {
	us := max(elapsed.Microseconds(), 0)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[collector] = append(prune(s.samples[collector], now.Add(-s.maxAge)), sample{
		timestamp: now,
		elapsedUs: us,
		calls:     calls,
		failed:    failed,
	})
}

// Snapshot aggregates every collector with samples in the window, sorted
// by collector name.
func (s *CollectorStats) Snapshot() []StatsSnapshot {
	cutoff := time.Now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StatsSnapshot, 0, len(s.samples))
	for name, samples := range s.samples {
		samples = prune(samples, cutoff)
		if len(samples) == 0 {
			delete(s.samples, name)
			continue
		}
		s.samples[name] = samples
		out = append(out, aggregate(name, samples))
	}
	slices.SortFunc(out, func(a, b StatsSnapshot) int { return strings.Compare(a.Collector, b.Collector) })
	return out
}

func aggregate(name string, samples []sample) StatsSnapshot {
	snap := StatsSnapshot{Collector: name, Documents: len(samples)}
	values := make([]int64, 0, len(samples))
	var sum int64
	for _, sm := range samples {
		values = append(values, sm.elapsedUs)
		sum += sm.elapsedUs
		snap.Calls += sm.calls
		if sm.failed {
			snap.Failures++
		}
	}
	slices.Sort(values)

	snap.MinUs = values[0]
	snap.MaxUs = values[len(values)-1]
	snap.AvgUs = float64(sum) / float64(len(values))
	snap.P50Us = percentile(values, 50)
	snap.P95Us = percentile(values, 95)
	snap.P99Us = percentile(values, 99)
	return snap
}

// prune drops samples older than cutoff, reusing the backing array.
func prune(samples []sample, cutoff time.Time) []sample {
	kept := samples[:0]
	for _, sm := range samples {
		if !sm.timestamp.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	return kept
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
