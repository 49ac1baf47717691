// Package store provides the persisted key/value back ends that hold the
// admin session between application runs.
//
// Every back end implements the same small contract:
//
//   - Get returns [ErrNotFound] for absent or expired keys.
//   - Put writes all entries atomically, optionally with a TTL.
//   - Delete is idempotent.
//
// [Redis] suits shells that share a session across processes, [Bolt] is a
// single-file store for a desktop or CLI profile, and [Memory] keeps the
// session only for the life of the process.
//
// # Architecture boundaries
//
// This package stores opaque strings. It does NOT decode tokens or decide
// whether a session is valid; that belongs to the session manager.
package store
