package adminsession

import "errors"

var (
	// ErrInvalidToken is returned by Login for an empty token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedToken is returned by LoginWithToken when the token cannot be
	// decoded.
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken is returned by Authorization when the session token has
	// expired since it was last checked.
	ErrExpiredToken = errors.New("token expired")
	// ErrNotAuthenticated is returned by Authorization without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrManagerNotReady is returned by Authorization before Bootstrap or
	// Login has run.
	ErrManagerNotReady = errors.New("session manager not bootstrapped")
	// ErrStorageWrite wraps persistence failures during Login.
	ErrStorageWrite = errors.New("session storage write failed")
	// ErrStorageDelete wraps persistence failures during Logout and
	// Invalidate.
	ErrStorageDelete = errors.New("session storage delete failed")
)
