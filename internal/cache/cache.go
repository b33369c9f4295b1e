package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when releasing a lock that expired or was
// taken over by another holder
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Cache wraps the Redis state shared between API replicas and workers:
// rate limit counters and per-job locks
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// CheckRateLimit counts a request against key in a fixed window and
// reports whether it is still within limit
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// first request in the window starts the clock
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return count <= limit, nil
}

// Lock is a held distributed lock
type Lock struct {
	key   string
	token string
}

// AcquireLock tries to take the lock on resource. It returns nil and no
// error when someone else holds it.
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{
		key:   fmt.Sprintf("lock:%s", resource),
		token: uuid.New().String(),
	}

	ok, err := c.client.SetNX(ctx, lock.key, lock.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}

// ReleaseLock releases a lock taken with AcquireLock
func (c *Cache) ReleaseLock(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}

	n, err := releaseScript.Run(ctx, c.client, []string{lock.key}, lock.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
