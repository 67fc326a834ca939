package secrets

import (
	"sync"
	"time"
)

// RateLimitConfig mirrors crates/secrets/src/rate_limit.rs's RateLimitConfig.
type RateLimitConfig struct {
	MaxRequests    int
	WindowDuration time.Duration
	Enabled        bool
}

// DefaultRateLimitConfig matches the Rust Default impl: 100 requests per
// minute, enabled.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 100, WindowDuration: time.Minute, Enabled: true}
}

type requestTracker struct {
	requests     []time.Time
	firstRequest time.Time
}

func (t *requestTracker) addRequest(now time.Time) {
	if len(t.requests) == 0 {
		t.firstRequest = now
	}
	t.requests = append(t.requests, now)
}

func (t *requestTracker) cleanupOldRequests(window time.Duration, now time.Time) {
	cutoff := now.Add(-window)
	kept := t.requests[:0]
	for _, r := range t.requests {
		if r.After(cutoff) {
			kept = append(kept, r)
		}
	}
	t.requests = kept
	if len(t.requests) > 0 {
		t.firstRequest = t.requests[0]
	}
}

func (t *requestTracker) count() int { return len(t.requests) }

// RateLimiter is a sliding-window counter keyed by arbitrary string,
// grounded on crates/secrets/src/rate_limit.rs. Each check cleans entries
// older than now-window, rejects if at or above max, else records the
// current request.
type RateLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	trackers map[string]*requestTracker
}

// NewRateLimiter constructs a limiter with the given configuration.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{config: cfg, trackers: make(map[string]*requestTracker)}
}

// CheckRateLimit allows or rejects a request for key. A rejection carries
// the number of seconds until the oldest in-window entry falls off
// (spec.md §4.3/§8 Invariant 5).
func (r *RateLimiter) CheckRateLimit(key string) error {
	if !r.config.Enabled {
		return nil
	}

	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	tracker, ok := r.trackers[key]
	if !ok {
		tracker = &requestTracker{}
		r.trackers[key] = tracker
		tracker.addRequest(now)
		return nil
	}

	tracker.cleanupOldRequests(r.config.WindowDuration, now)

	if tracker.count() >= r.config.MaxRequests {
		timeUntilReset := r.config.WindowDuration - now.Sub(tracker.firstRequest)
		if timeUntilReset < 0 {
			timeUntilReset = 0
		}
		return rateLimited(int(timeUntilReset.Seconds()))
	}

	tracker.addRequest(now)
	return nil
}

// Reset clears the tracker for a single key.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, key)
}

// ClearAll clears every tracked key.
func (r *RateLimiter) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers = make(map[string]*requestTracker)
}

// RequestCount returns the current in-window request count for a key.
func (r *RateLimiter) RequestCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[key]
	if !ok {
		return 0
	}
	return t.count()
}
