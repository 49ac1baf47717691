package metrics

import (
	"testing"
	"time"
)

func BenchmarkInc(b *testing.B) {
	m := New(Config{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(LoginSuccess)
	}
}

func BenchmarkIncDisabled(b *testing.B) {
	m := New(Config{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(LoginSuccess)
	}
}

func BenchmarkIncParallel(b *testing.B) {
	m := New(Config{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(ExpiredOnAccess)
		}
	})
}

func BenchmarkObserveParallel(b *testing.B) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})
	d := 3 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(StorageWriteLatency, d)
		}
	})
}
