package entitlements

import (
	"math"
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	perMinute  int
	lastRefill time.Time
}

// RateLimiter is a per-organization token bucket sized by the plan's API
// requests per minute. Buckets are resized in place when a plan changes.
type RateLimiter struct {
	Now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Now:     func() time.Time { return time.Now().UTC() },
		buckets: make(map[string]*bucket),
	}
}

// AllowPlan takes one token for the engine's organization at the engine's
// plan rate. Plans without an API allowance are always refused.
func (r *RateLimiter) AllowPlan(e *Engine) (bool, time.Duration) {
	return r.Allow(e.orgID(), e.Plan().APIRequestsPerMinute)
}

// Allow takes one token from orgID's bucket. When refused, the second value
// is how long until a token is available.
func (r *RateLimiter) Allow(orgID string, perMinute int) (bool, time.Duration) {
	if perMinute <= 0 || orgID == "" {
		return false, time.Minute
	}

	now := r.Now()
	capacity := float64(perMinute)
	refill := capacity / 60.0

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[orgID]
	if !ok {
		r.buckets[orgID] = &bucket{tokens: capacity - 1, perMinute: perMinute, lastRefill: now}
		return true, 0
	}

	if b.perMinute != perMinute {
		b.perMinute = perMinute
		b.tokens = math.Min(b.tokens, capacity)
	}
	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*refill)
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := time.Duration(math.Ceil((1-b.tokens)*60/capacity)) * time.Second
	if wait < time.Second {
		wait = time.Second
	}
	return false, wait
}

// Forget drops the bucket for orgID.
func (r *RateLimiter) Forget(orgID string) {
	r.mu.Lock()
	delete(r.buckets, orgID)
	r.mu.Unlock()
}
