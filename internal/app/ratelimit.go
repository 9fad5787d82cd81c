package app

import (
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiters enforces a per-user budget on message posting. Limiters are
// created lazily and held for the lifetime of the process.
type rateLimiters struct {
	mu      sync.Mutex
	perUser map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newRateLimiters(perMinute, burst int) *rateLimiters {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 10
	}
	return &rateLimiters{
		perUser: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

func (r *rateLimiters) Allow(userID string) bool {
	r.mu.Lock()
	limiter, ok := r.perUser[userID]
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.perUser[userID] = limiter
	}
	r.mu.Unlock()
	return limiter.Allow()
}
