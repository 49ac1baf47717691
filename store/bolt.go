package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// defaultBucket is the bbolt bucket holding session entries.
const defaultBucket = "adminsession-1"

// expiryLen is the size of the big-endian expiry prefix of every stored
// value, in bytes.
const expiryLen = 8

// Bolt is a session store backed by a single bbolt database file.
//
// Values are stored as an 8-byte big-endian Unix expiry in nanoseconds (zero
// for no expiry) followed by the value itself.
type Bolt struct {
	db     *bbolt.DB
	bucket []byte
	now    func() time.Time
}

// BoltOptions configures [OpenBolt].
type BoltOptions struct {
	// Bucket overrides the default bucket name.
	Bucket string

	// Timeout bounds how long Open waits for the file lock held by another
	// process. Zero means one second.
	Timeout time.Duration

	// Now overrides the clock used for TTL checks.
	Now func() time.Time
}

// OpenBolt opens or creates the database file at path.
func OpenBolt(path string, opts *BoltOptions) (s *Bolt, err error) {
	if opts == nil {
		opts = &BoltOptions{}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrUnavailable, path, err)
	}

	bucket := opts.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Bolt{
		db:     db,
		bucket: []byte(bucket),
		now:    now,
	}, nil
}

// Close releases the database file.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key. Entries past their TTL are reported
// as absent and removed on the next write.
func (s *Bolt) Get(_ context.Context, key string) (v string, err error) {
	var found bool
	err = s.db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt == nil {
			return nil
		}

		data := bkt.Get([]byte(key))
		if len(data) < expiryLen {
			return nil
		}

		exp := int64(binary.BigEndian.Uint64(data[:expiryLen]))
		if exp != 0 && exp <= s.now().UnixNano() {
			return nil
		}

		// Copy, since data is only valid inside the transaction.
		v = string(data[expiryLen:])
		found = true

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	} else if !found {
		return "", ErrNotFound
	}

	return v, nil
}

// Put stores all entries in one update transaction. A zero ttl keeps the
// entries until they are deleted.
func (s *Bolt) Put(_ context.Context, entries map[string]string, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}

	var exp int64
	if ttl > 0 {
		exp = s.now().Add(ttl).UnixNano()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}

		if err = s.purgeExpired(bkt); err != nil {
			return err
		}

		for k, v := range entries {
			data := make([]byte, expiryLen+len(v))
			binary.BigEndian.PutUint64(data[:expiryLen], uint64(exp))
			copy(data[expiryLen:], v)

			if err = bkt.Put([]byte(k), data); err != nil {
				return fmt.Errorf("putting %q: %w", k, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Delete removes keys. Missing keys and a missing bucket are not an error.
func (s *Bolt) Delete(_ context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(s.bucket)
		if bkt == nil {
			return nil
		}

		for _, k := range keys {
			if err := bkt.Delete([]byte(k)); err != nil {
				return fmt.Errorf("deleting %q: %w", k, err)
			}
		}

		return s.purgeExpired(bkt)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// purgeExpired removes entries whose TTL elapsed.  It must be called inside an
// update transaction.
func (s *Bolt) purgeExpired(bkt *bbolt.Bucket) error {
	now := s.now().UnixNano()

	var stale [][]byte
	err := bkt.ForEach(func(k, v []byte) error {
		if len(v) < expiryLen {
			stale = append(stale, append([]byte(nil), k...))

			return nil
		}

		exp := int64(binary.BigEndian.Uint64(v[:expiryLen]))
		if exp != 0 && exp <= now {
			stale = append(stale, append([]byte(nil), k...))
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning bucket: %w", err)
	}

	for _, k := range stale {
		if err = bkt.Delete(k); err != nil {
			return fmt.Errorf("deleting expired %q: %w", k, err)
		}
	}

	return nil
}
