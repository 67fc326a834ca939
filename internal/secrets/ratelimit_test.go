package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{MaxRequests: 3, WindowDuration: time.Minute, Enabled: true})

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.CheckRateLimit("key"))
	}
	assert.Equal(t, 3, limiter.RequestCount("key"))

	err := limiter.CheckRateLimit("key")
	require.Error(t, err)
	rlErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrRateLimitExceeded, rlErr.Kind)
}

func TestRateLimiterDisabledAlwaysAllows(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{MaxRequests: 1, WindowDuration: time.Minute, Enabled: false})
	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.CheckRateLimit("key"))
	}
}

func TestRateLimiterResetClearsTracker(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{MaxRequests: 1, WindowDuration: time.Minute, Enabled: true})
	require.NoError(t, limiter.CheckRateLimit("key"))
	require.Error(t, limiter.CheckRateLimit("key"))

	limiter.Reset("key")
	assert.NoError(t, limiter.CheckRateLimit("key"))
}

func TestRateLimiterPerKeyIsolation(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{MaxRequests: 1, WindowDuration: time.Minute, Enabled: true})
	require.NoError(t, limiter.CheckRateLimit("a"))
	require.NoError(t, limiter.CheckRateLimit("b"))
	assert.Error(t, limiter.CheckRateLimit("a"))
}
