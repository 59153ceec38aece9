package store

import (
	"sync"
	"time"
)

// latencyWindow is the rolling sample count kept for composition latency.
const latencyWindow = 100

// PerformanceMonitor records hydration cache behavior and composition
// latency. Diagnostic only: nothing in the data path depends on it.
type PerformanceMonitor struct {
	mu       sync.Mutex
	samples  []time.Duration
	next     int
	filled   bool
	hits     uint64
	misses   uint64
	failures uint64
}

// MonitorStats is a point-in-time read of the monitor.
type MonitorStats struct {
	Samples      int     `json:"samples"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MinLatencyMs float64 `json:"min_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
	Hits         uint64  `json:"cache_hits"`
	Misses       uint64  `json:"cache_misses"`
	Failures     uint64  `json:"content_load_failures"`
	HitRate      float64 `json:"hit_rate_percent"`
}

func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		samples: make([]time.Duration, latencyWindow),
	}
}

func (m *PerformanceMonitor) RecordComposition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[m.next] = d
	m.next = (m.next + 1) % latencyWindow
	if m.next == 0 {
		m.filled = true
	}
}

func (m *PerformanceMonitor) RecordHit() {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
}

func (m *PerformanceMonitor) RecordMiss() {
	m.mu.Lock()
	m.misses++
	m.mu.Unlock()
}

func (m *PerformanceMonitor) RecordFailure() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

func (m *PerformanceMonitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.next
	if m.filled {
		count = latencyWindow
	}

	stats := MonitorStats{
		Samples:  count,
		Hits:     m.hits,
		Misses:   m.misses,
		Failures: m.failures,
	}

	if count > 0 {
		var sum time.Duration
		min := m.samples[0]
		max := m.samples[0]
		for i := 0; i < count; i++ {
			d := m.samples[i]
			sum += d
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
		stats.AvgLatencyMs = float64(sum.Microseconds()) / float64(count) / 1000
		stats.MinLatencyMs = float64(min.Microseconds()) / 1000
		stats.MaxLatencyMs = float64(max.Microseconds()) / 1000
	}

	if total := m.hits + m.misses; total > 0 {
		stats.HitRate = float64(m.hits) / float64(total) * 100
	}

	return stats
}
