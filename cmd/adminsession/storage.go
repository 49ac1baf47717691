package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/store"
	"github.com/redis/go-redis/v9"
)

// openStorage opens the configured back end.  closeFn releases it.
func openStorage(ctx context.Context, c *storageConfig) (s adminsession.Storage, closeFn func() error, err error) {
	switch c.Backend {
	case backendBolt:
		if err = os.MkdirAll(filepath.Dir(c.Path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating storage dir: %w", err)
		}

		var b *store.Bolt
		b, err = store.OpenBolt(c.Path, &store.BoltOptions{Timeout: time.Second})
		if err != nil {
			return nil, nil, err
		}

		return b, b.Close, nil
	case backendRedis:
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{c.RedisAddr},
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})

		r := store.NewRedis(rdb)
		if _, err = r.Ping(ctx); err != nil {
			_ = rdb.Close()

			return nil, nil, err
		}

		return r, rdb.Close, nil
	default:
		return store.NewMemory(nil), func() error { return nil }, nil
	}
}
