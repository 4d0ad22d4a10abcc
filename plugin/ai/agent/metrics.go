package agent

import (
	"sync"
	"time"
)

// Metrics tracks per-capability call counts and latency. Safe for
// concurrent use.
type Metrics struct {
	mu    sync.Mutex
	stats map[string]*CapabilityStats
}

// CapabilityStats is a snapshot of one capability's counters.
type CapabilityStats struct {
	Calls        int64         `json:"calls"`
	Failures     int64         `json:"failures"`
	TotalLatency time.Duration `json:"-"`
	AvgLatencyMs int64         `json:"avg_latency_ms"`
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{stats: make(map[string]*CapabilityStats)}
}

// Record adds one observation for the named capability.
func (m *Metrics) Record(capability string, latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[capability]
	if !ok {
		s = &CapabilityStats{}
		m.stats[capability] = s
	}
	s.Calls++
	if err != nil {
		s.Failures++
	}
	s.TotalLatency += latency
}

// Snapshot returns a copy of all counters with derived averages.
func (m *Metrics) Snapshot() map[string]CapabilityStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]CapabilityStats, len(m.stats))
	for name, s := range m.stats {
		copied := *s
		if copied.Calls > 0 {
			copied.AvgLatencyMs = copied.TotalLatency.Milliseconds() / copied.Calls
		}
		out[name] = copied
	}
	return out
}
