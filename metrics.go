package adminsession

import "time"

// MetricsSnapshot returns the current counters and histograms.  Disabled
// metrics produce empty maps.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil {
		return
	}

	m.metrics.Inc(id)
}

func (m *Manager) metricObserve(id MetricID, d time.Duration) {
	if m == nil {
		return
	}

	m.metrics.Observe(id, d)
}
