//go:build integration
// +build integration

package kv

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestMemcachedStore_Integration round-trips a value through a live memcached.
// Requires MEMCACHED_ADDRS (default localhost:11211).
func TestMemcachedStore_Integration(t *testing.T) {
	addrs := os.Getenv("MEMCACHED_ADDRS")
	if addrs == "" {
		addrs = "localhost:11211"
	}
	s := NewMemcachedStore(addrs, 500*time.Millisecond, 2)
	defer s.Close()
	roundTrip(t, s)
}

// TestRedisStore_Integration round-trips a value through a live redis.
// Requires REDIS_ADDR (default localhost:6379).
func TestRedisStore_Integration(t *testing.T) {
	s := NewRedisStore(RedisOptions{Addr: os.Getenv("REDIS_ADDR")})
	defer s.Close()
	roundTrip(t, s)
}

func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Skipf("%s not reachable: %v", s.Backend(), err)
	}
	key := "integration_" + time.Now().Format("150405.000000")
	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get(new key) = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, key, "dark"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok || v != "dark" {
		t.Errorf("Get() = %q, %v, %v; want dark, true, nil", v, ok, err)
	}
}
