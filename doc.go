// Package adminsession manages the bearer-token session of the admin back
// office client: it restores a persisted session at start-up, records a new
// one after login, answers whether the current token is still usable and
// tears the session down on logout or expiry.
//
// A [Manager] is built once with [New] and shared by the UI shell and the
// HTTP transport; its methods are safe for concurrent use. There is no
// package-level session state.
//
// # Lifecycle
//
// A fresh manager is initializing. [Manager.Bootstrap] moves it to
// authenticated or unauthenticated and never fails. From there
// [Manager.Login] and [Manager.Logout] (or [Manager.Invalidate]) move it
// back and forth. Expiry is checked on restore and lazily on every
// [Manager.Authorization] call; nothing runs in the background except the
// optional audit dispatcher.
//
// # Architecture boundaries
//
// Token decoding lives in the token package and persistence in the store
// package. This package owns the state machine, the identity derivation and
// the audit and metric hooks around them.
//
// # What this package must NOT do
//
//   - Issue tokens or authorize requests; the backend does both.
//   - Log or audit bearer tokens.
//   - Start timers that mutate session state.
package adminsession
