package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestRedisStore returns a RedisStore backed by an in-process miniredis.
func newTestRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, prefix), mr
}

func TestRedisStoreGetMissing(t *testing.T) {
	s, _ := newTestRedisStore(t, "")
	v, err := s.Get(context.Background(), "nope")
	if err != nil || v != 0 {
		t.Fatalf("Get() = %d, %v; want 0, nil", v, err)
	}
}

func TestRedisStoreSetUsesPrefixAndTTL(t *testing.T) {
	s, mr := newTestRedisStore(t, "")
	ctx := context.Background()

	if err := s.Set(ctx, "sid:login", -4, 300*time.Second); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	raw, err := mr.Get("captcha:sid:login")
	if err != nil {
		t.Fatalf("key not stored under default prefix: %v", err)
	}
	if raw != "-4" {
		t.Errorf("raw value = %q, want -4", raw)
	}
	if ttl := mr.TTL("captcha:sid:login"); ttl != 300*time.Second {
		t.Errorf("TTL = %s, want 5m0s", ttl)
	}
	if v, _ := s.Get(ctx, "sid:login"); v != -4 {
		t.Errorf("Get() = %d, want -4", v)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	s, mr := newTestRedisStore(t, "test:")
	ctx := context.Background()

	s.Set(ctx, "login", 9, 300*time.Second)
	mr.FastForward(299 * time.Second)
	if v, _ := s.Get(ctx, "login"); v != 9 {
		t.Fatalf("Get() before expiry = %d, want 9", v)
	}
	mr.FastForward(2 * time.Second)
	if v, _ := s.Get(ctx, "login"); v != 0 {
		t.Errorf("Get() after expiry = %d, want 0", v)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	s, mr := newTestRedisStore(t, "test:")
	ctx := context.Background()

	s.Set(ctx, "login", 9, time.Minute)
	if err := s.Delete(ctx, "login"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if mr.Exists("test:login") {
		t.Error("key still exists after Delete")
	}
	// deleting a missing key is not an error
	if err := s.Delete(ctx, "login"); err != nil {
		t.Errorf("second Delete() error: %v", err)
	}
}

func TestRedisStoreServerDown(t *testing.T) {
	s, mr := newTestRedisStore(t, "")
	mr.Close()
	if _, err := s.Get(context.Background(), "login"); err == nil {
		t.Error("expected error with redis down")
	}
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := Dial(context.Background(), addr, "", 0)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	client.Close()

	mr.Close()
	if _, err := Dial(context.Background(), addr, "", 0); err == nil {
		t.Error("expected Dial to fail against a closed server")
	}
}

func TestRedisStoreGetDel(t *testing.T) {
	s, mr := newTestRedisStore(t, "test:")
	ctx := context.Background()

	s.Set(ctx, "login", -2, time.Minute)
	v, err := s.GetDel(ctx, "login")
	if err != nil || v != -2 {
		t.Fatalf("GetDel() = %d, %v; want -2, nil", v, err)
	}
	if mr.Exists("test:login") {
		t.Error("key still exists after GetDel")
	}
	if v, err := s.GetDel(ctx, "login"); err != nil || v != 0 {
		t.Errorf("GetDel() on missing key = %d, %v; want 0, nil", v, err)
	}
}
