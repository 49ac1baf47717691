// Package token decodes and classifies the bearer tokens issued by the admin
// backend's login endpoint.
//
// A token is three dot-separated base64url segments (header, payload,
// signature). [Decode] reads the payload without verifying the signature:
// the client only needs the subject, role and expiry to drive its session
// state. [IsExpired] is fail-safe and treats anything it cannot decode as
// expired.
//
// # Signing and verification
//
// [Manager] wraps github.com/golang-jwt/jwt/v5 for the two places where
// signatures matter on the client side: minting fixture tokens for tests and
// local development, and optionally checking a restored token against a
// published verification key.
//
// # What this package must NOT do
//
//   - Import adminsession or store (no upward imports).
//   - Decide session state; it only reports what a token says.
package token
