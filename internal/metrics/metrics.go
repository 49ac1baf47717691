package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies a counter or histogram slot.
type ID uint16

// Counter and histogram IDs.  The order is part of the snapshot format and
// must only be appended to.
const (
	BootstrapRestored ID = iota
	BootstrapEmpty
	BootstrapPurged
	BootstrapReadError
	LoginSuccess
	LoginFailure
	Logout
	Invalidated
	ExpiredOnAccess
	StorageWriteLatency
	idCount
)

// BucketCount is the number of histogram buckets.
const BucketCount = 8

const cacheLineSize = 64

type histogram struct {
	buckets [BucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds the counters.  A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of all values.  Histogram buckets are not
// cumulative.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

// New returns metrics configured by cfg.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter id.
func (m *Metrics) Inc(id ID) {
	if !m.Enabled() || id >= idCount {
		return
	}

	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id.  Only histogram IDs are accepted.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if !m.LatencyEnabled() || id != StorageWriteLatency {
		return
	}

	atomic.AddUint64(&m.histograms[id].buckets[BucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}

	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all values.  Disabled metrics produce empty maps.
func (m *Metrics) Snapshot() (s Snapshot) {
	s = Snapshot{
		Counters:   map[ID]uint64{},
		Histograms: map[ID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := ID(0); id < idCount; id++ {
		if id == StorageWriteLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, BucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[StorageWriteLatency].buckets[i])
		}
		s.Histograms[StorageWriteLatency] = buckets
	}

	return s
}

// BucketIndex maps d onto the histogram bucket bounds 5, 10, 25, 50, 100,
// 250, 500 ms and +Inf.
func BucketIndex(d time.Duration) int {
	switch ms := d.Milliseconds(); {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
