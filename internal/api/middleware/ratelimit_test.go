package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiterBucketsPerAddress(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	// another address has its own bucket
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.Tracked())
}

func TestIPRateLimiterZeroConfigUsesDefaults(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{})
	assert.Equal(t, DefaultRateLimitConfig(), limiter.cfg)
}

func TestIPRateLimiterCleanupForgetsIdleAddresses(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{IdleTimeout: 1})
	limiter.Allow("10.0.0.1")
	require.Equal(t, 1, limiter.Tracked())

	// lastSeen is now more than a nanosecond in the past
	limiter.Cleanup()
	assert.Equal(t, 0, limiter.Tracked())
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/players/anonymous", nil)
	req.RemoteAddr = "192.0.2.10:5555"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "RATE_LIMITED")

	// a different port on the same host shares the bucket
	req.RemoteAddr = "192.0.2.10:6666"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
