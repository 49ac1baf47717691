package adminsession

import (
	"context"
	"time"
)

// Storage persists the session between runs.  The back ends in the store
// package implement it.
//
// Get must return an error matching store.ErrNotFound for absent keys.  Put
// must write all entries or none; a zero ttl means no expiry.  Delete must
// not fail for absent keys.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, entries map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Conceptual storage keys, appended to StorageConfig.KeyPrefix.
const (
	keyToken    = "token"
	keyIdentity = "identity"
)
