package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	host, port := mr.Host(), mr.Server().Addr().Port
	mr.Close()

	if _, err := NewCache(host, port, "", 0); err == nil {
		t.Error("Expected error connecting to a stopped server")
	}
}

func TestCache_RateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	key := "client:10.0.0.1"
	limit := int64(5)
	window := 1 * time.Minute

	for i := 0; i < 5; i++ {
		allowed, err := cache.CheckRateLimit(ctx, key, limit, window)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	allowed, err := cache.CheckRateLimit(ctx, key, limit, window)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if allowed {
		t.Error("Request beyond limit should be denied")
	}

	// other clients have their own window
	allowed, err = cache.CheckRateLimit(ctx, "client:10.0.0.2", limit, window)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !allowed {
		t.Error("Other client should be allowed")
	}

	// window expiry resets the counter
	mr.FastForward(window + time.Second)
	allowed, err = cache.CheckRateLimit(ctx, key, limit, window)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !allowed {
		t.Error("Request after window expiry should be allowed")
	}
}

func TestCache_Locking(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	resource := "job:test-123"

	lock, err := cache.AcquireLock(ctx, resource, 1*time.Minute)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if lock == nil {
		t.Fatal("First lock acquisition should succeed")
	}

	second, err := cache.AcquireLock(ctx, resource, 1*time.Minute)
	if err != nil {
		t.Fatalf("Second AcquireLock failed: %v", err)
	}
	if second != nil {
		t.Error("Second lock acquisition should fail")
	}

	if err := cache.ReleaseLock(ctx, lock); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}

	again, err := cache.AcquireLock(ctx, resource, 1*time.Minute)
	if err != nil {
		t.Fatalf("AcquireLock after release failed: %v", err)
	}
	if again == nil {
		t.Error("Lock acquisition after release should succeed")
	}
}

func TestCache_ReleaseExpiredLock(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	lock, err := cache.AcquireLock(ctx, "job:slow", time.Second)
	if err != nil || lock == nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	// a second worker takes over after expiry
	other, err := cache.AcquireLock(ctx, "job:slow", time.Minute)
	if err != nil || other == nil {
		t.Fatalf("Takeover AcquireLock failed: %v", err)
	}

	if err := cache.ReleaseLock(ctx, lock); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("Expected ErrLockNotHeld, got %v", err)
	}
	if !mr.Exists("lock:job:slow") {
		t.Error("Stale release must not remove the new holder's lock")
	}

	if err := cache.ReleaseLock(ctx, nil); err != nil {
		t.Errorf("Releasing nil lock should be a no-op, got %v", err)
	}
}
