package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// Source provides the values to export.  [*adminsession.Manager] implements
// it.
type Source interface {
	MetricsSnapshot() adminsession.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
}

type observedCounter struct {
	id         adminsession.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      adminsession.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter keeps the callback registration alive until Close.
type OTelExporter struct {
	source       Source
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
	auditFailed  metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter for m.
func NewOTelExporter(meter metric.Meter, m *adminsession.Manager) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}

	return NewOTelExporterFromSource(meter, m)
}

// NewOTelExporterFromSource registers instruments on meter for source.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (e *OTelExporter, err error) {
	if meter == nil {
		return nil, ErrNilMeter
	} else if source == nil {
		return nil, ErrNilSource
	}

	e = &OTelExporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	var observables []metric.Observable
	for _, def := range internaldefs.CounterDefs {
		var ins metric.Int64ObservableCounter
		ins, err = meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("creating counter %s: %w", def.Name, err)
		}

		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		var h observedHistogram
		h, err = newObservedHistogram(meter, def)
		if err != nil {
			return nil, err
		}

		e.histograms = append(e.histograms, h)
		observables = append(observables, h.count)
		for _, b := range h.buckets {
			observables = append(observables, b)
		}
	}

	for _, c := range []struct {
		ins *metric.Int64ObservableCounter
		def internaldefs.CounterDef
	}{
		{ins: &e.auditDropped, def: internaldefs.AuditDropped},
		{ins: &e.auditFailed, def: internaldefs.AuditFailed},
	} {
		*c.ins, err = meter.Int64ObservableCounter(c.def.Name, metric.WithDescription(c.def.Help))
		if err != nil {
			return nil, fmt.Errorf("creating counter %s: %w", c.def.Name, err)
		}

		observables = append(observables, *c.ins)
	}

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("registering callback: %w", err)
	}

	return e, nil
}

func newObservedHistogram(meter metric.Meter, def internaldefs.HistogramDef) (h observedHistogram, err error) {
	h.id = def.ID
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		h.buckets[i], err = meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return h, fmt.Errorf("creating bucket gauge %s: %w", name, err)
		}
	}

	name := def.Name + "_count"
	h.count, err = meter.Int64ObservableGauge(name, metric.WithDescription("Histogram sample count."))
	if err != nil {
		return h, fmt.Errorf("creating count gauge %s: %w", name, err)
	}

	return h, nil
}

// observe is the metric.Callback reading one snapshot per collection.
func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snap.Counters[c.id]))
	}

	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets[i], int64(v))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	o.ObserveInt64(e.auditFailed, int64(e.source.AuditFailed()))

	return nil
}

// Close unregisters the callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}

	return e.registration.Unregister()
}
