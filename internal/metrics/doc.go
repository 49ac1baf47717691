// Package metrics provides lock-free counters and a latency histogram for the
// session manager.
//
// # Design
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// [sync/atomic.AddUint64]. The histogram has 8 fixed buckets (≤5ms … +Inf).
// Neither allocates on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshots. Export (Prometheus, OTel)
// lives in metrics/export and reads [Snapshot] values.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import adminsession or any sibling package.
//   - Expose global registries.
package metrics
