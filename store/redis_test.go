package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedis(rdb)
	ctx := context.Background()

	err := s.Put(ctx, map[string]string{"t": "a.b.c", "i": "{}"}, 30*time.Second)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("t"); ttl != 30*time.Second {
		t.Fatalf("expected 30s TTL, got %v", ttl)
	}
	if ttl := mr.TTL("i"); ttl != 30*time.Second {
		t.Fatalf("expected both keys to share the TTL, got %v", ttl)
	}

	mr.FastForward(31 * time.Second)
	if _, err := s.Get(ctx, "t"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
}

func TestRedisNoTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedis(rdb)

	if err := s.Put(context.Background(), map[string]string{"t": "v"}, 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("t"); ttl != 0 {
		t.Fatalf("expected persistent key, got TTL %v", ttl)
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedis(rdb)
	ctx := context.Background()

	if _, err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	mr.Close()

	if _, err := s.Get(ctx, "t"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Get, got %v", err)
	}
	if err := s.Put(ctx, map[string]string{"t": "v"}, 0); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Put, got %v", err)
	}
	if err := s.Delete(ctx, "t"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Delete, got %v", err)
	}
	if _, err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Ping, got %v", err)
	}
}
