// Package client is a JSON client for the admin back-office API.
//
// Every request goes through [Transport], which attaches the session's bearer
// token and ends the session when the backend answers 401 Unauthorized.  The
// login endpoint is exempt from both: it is called without a session, and its
// 401 means wrong credentials rather than an expired session.
//
// Logging in stores the session through the manager; logging out is local
// only, the backend keeps no session state.
package client
