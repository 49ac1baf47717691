package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/honjaopseoye/adminsession"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot adminsession.MetricsSnapshot
	dropped  uint64
	failed   uint64
}

func (f *fakeSource) MetricsSnapshot() adminsession.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := adminsession.MetricsSnapshot{
		Counters:   make(map[adminsession.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[adminsession.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}

	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.dropped
}

func (f *fakeSource) AuditFailed() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.failed
}

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return reader, provider
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}

	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter(t)

	src := &fakeSource{
		snapshot: adminsession.MetricsSnapshot{
			Counters: map[adminsession.MetricID]uint64{
				adminsession.MetricLoginSuccess: 3,
			},
			Histograms: map[adminsession.MetricID][]uint64{
				adminsession.MetricStorageWriteLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
		failed:  2,
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("adminsession-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	checks := map[string]int64{
		"adminsession_login_success_total":                          3,
		"adminsession_audit_dropped_total":                          1,
		"adminsession_audit_failed_total":                           2,
		"adminsession_storage_write_latency_seconds_count":          8,
		"adminsession_storage_write_latency_seconds_bucket_le_0_01": 2,
	}
	for name, want := range checks {
		got, ok := findInt64(rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != want {
			t.Fatalf("metric %s: expected %d, got %d", name, want, got)
		}
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newTestMeter(t)

	if _, err := NewOTelExporterFromSource(provider.Meter("adminsession-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewOTelExporter(provider.Meter("adminsession-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil manager, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter(t)

	src := &fakeSource{
		snapshot: adminsession.MetricsSnapshot{
			Counters: map[adminsession.MetricID]uint64{
				adminsession.MetricLoginSuccess: 1,
			},
			Histograms: map[adminsession.MetricID][]uint64{},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("adminsession-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()

			src.mu.Lock()
			src.snapshot.Counters[adminsession.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
