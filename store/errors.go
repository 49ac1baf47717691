package store

import "errors"

// ErrNotFound is returned by Get when the key is absent or its TTL elapsed.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable wraps back-end failures (connection, transaction, I/O).
var ErrUnavailable = errors.New("storage unavailable")
