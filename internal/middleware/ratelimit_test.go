package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/therealutkarshpriyadarshi/emergencyprep/internal/logging"
	"golang.org/x/time/rate"
)

func serve(router *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, 2) // 2 requests per second, burst of 2

	router := gin.New()
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(router, "10.0.0.1:1234"))
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "10.0.0.1:1234"))

	// separate bucket per client IP
	assert.Equal(t, http.StatusOK, serve(router, "10.0.0.2:1234"))
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("ip:a")
	now = now.Add(5 * time.Minute)
	rl.allow("ip:b")

	assert.Equal(t, 1, rl.Prune(time.Minute))
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "ip:b")
}

func TestPerMinute(t *testing.T) {
	assert.InDelta(t, 0.5, float64(PerMinute(30)), 1e-9)
	assert.Equal(t, rate.Inf, PerMinute(0))
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	args := m.Called(key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestDistributedRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := new(mockStore)
	store.On("CheckRateLimit", "ip:10.0.0.1", int64(30), time.Minute).Return(true, nil).Once()
	store.On("CheckRateLimit", "ip:10.0.0.1", int64(30), time.Minute).Return(false, nil).Once()
	store.On("CheckRateLimit", "ip:10.0.0.1", int64(30), time.Minute).Return(false, errors.New("redis down")).Once()

	router := gin.New()
	router.Use(DistributedRateLimit(store, 30, time.Minute, logging.NewNop()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(router, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "10.0.0.1:1234"))
	// store failure fails open
	assert.Equal(t, http.StatusOK, serve(router, "10.0.0.1:1234"))

	store.AssertExpectations(t)
}
