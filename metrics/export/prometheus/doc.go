// Package prometheus renders session manager metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps an [adminsession.Manager] and serves an
// [http.Handler] for a /metrics endpoint. Counters are named
// adminsession_*_total; the histogram is
// adminsession_storage_write_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with a global Prometheus registry; callers mount the Handler.
//   - Mutate manager state.
package prometheus
