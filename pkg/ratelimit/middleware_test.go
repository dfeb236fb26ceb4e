package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"mokosmart/internal/config"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(RateLimitMiddleware(ctx, RateLimitConfig{RPS: 1, Burst: 2, CleanupInterval: time.Minute, MaxAge: time.Minute}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLimiterSetCleanup(t *testing.T) {
	set := &limiterSet{cfg: RateLimitConfig{RPS: 1, Burst: 1, MaxAge: time.Minute}, limiters: make(map[string]*Limiter)}
	set.get("10.0.0.1")
	set.get("10.0.0.2").lastSeen = time.Now().Add(-2 * time.Minute)

	set.cleanup(time.Now())

	assert.Len(t, set.limiters, 1)
	assert.Contains(t, set.limiters, "10.0.0.1")
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.RateLimitConfig{RPS: 2.5, CleanupInterval: 30})
	assert.Equal(t, 2.5, c.RPS)
	assert.Equal(t, 20, c.Burst)
	assert.Equal(t, 30*time.Second, c.CleanupInterval)
	assert.Equal(t, "2.5", formatRate(c.RPS))
}
