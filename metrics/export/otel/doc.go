// Package otel publishes session manager metrics as OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket, all read by a single callback
// from [adminsession.Manager.MetricsSnapshot].
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate manager state.
package otel
