package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/metrics"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages in-process rate limiting for API requests
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     limit,
		burst:    burst,
		now:      time.Now,
	}
}

// PerMinute converts a requests-per-minute budget into a rate.Limit
func PerMinute(requests int) rate.Limit {
	if requests <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(requests))
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = rl.now()

	return entry.limiter.Allow()
}

// Prune drops limiters not used for longer than idle
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Cleanup prunes idle limiters every interval until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune(idle)
		}
	}
}

func clientKey(c *gin.Context) string {
	if partnerID, ok := GetPartnerID(c); ok {
		return fmt.Sprintf("partner:%s", partnerID)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

func rejectRateLimited(c *gin.Context, backend string) {
	metrics.RecordRateLimited(backend)
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": "Rate limit exceeded",
	})
	c.Abort()
}

// RateLimit middleware limits requests per partner or IP in this process
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(clientKey(c)) {
			rejectRateLimited(c, "local")
			return
		}
		c.Next()
	}
}

// RateLimitStore counts requests in a window shared across replicas
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// DistributedRateLimit middleware limits requests per partner or IP across
// all API replicas. Store errors let the request through.
func DistributedRateLimit(store RateLimitStore, limit int64, window time.Duration, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := store.CheckRateLimit(c.Request.Context(), clientKey(c), limit, window)
		if err != nil {
			logger.WithError(err).Warn("Rate limit store unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			rejectRateLimited(c, "redis")
			return
		}
		c.Next()
	}
}
