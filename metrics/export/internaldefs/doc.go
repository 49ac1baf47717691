// Package internaldefs holds the metric names and bucket bounds shared by the
// exporters, so Prometheus and OTel publish identical series.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
