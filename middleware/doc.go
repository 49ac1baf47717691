// Package middleware gates HTTP handlers on the local admin session.
//
// # Guards
//
//   - [Guard] admits requests while a session is active, optionally limited
//     to a set of roles.
//   - [RequireSession] admits any authenticated session.
//   - [RequireAdmin] admits only the ADMIN role.
//
// While the manager is still restoring the session the guards answer 503 with
// a Retry-After header; without a session they answer 401.  Admitted requests
// carry the session identity in their context, see [IdentityFromContext].
//
// # What this package must NOT do
//
//   - Decode tokens or read storage (the manager does both).
//   - Start or end sessions, except through the lazy expiry check of
//     Authorization.
package middleware
