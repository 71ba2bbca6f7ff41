package server

import (
	"net/http"
	"sync"
	"time"
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// inMemoryRateLimiter is a fixed-window request counter per caller. The
// router applies it to every protocol request posted to /api/v1/request
// (run.start and order.reorder included), so an accidental tight retry loop
// can't drive repeated reorder attempts.
type inMemoryRateLimiter struct {
	mu          sync.Mutex
	requests    map[string]rateLimitEntry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

func newInMemoryRateLimiter(maxRequests int, window time.Duration, now func() time.Time) *inMemoryRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &inMemoryRateLimiter{
		requests:    make(map[string]rateLimitEntry),
		maxRequests: maxRequests,
		window:      window,
		now:         now,
	}
}

func (l *inMemoryRateLimiter) allow(callerID string) bool {
	if callerID == "" {
		return true
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.requests[callerID]
	if !exists || now.Sub(entry.windowStart) >= l.window {
		l.requests[callerID] = rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	if entry.count >= l.maxRequests {
		return false
	}

	entry.count++
	l.requests[callerID] = entry
	return true
}

// rateLimitMiddleware enforces a per-caller request limit, keyed by the
// X-Copilot-Session header (the UI's session identity; there is no
// multi-tenant auth layer in this system). Requests without that header are
// not limited.
func rateLimitMiddleware(limiter *inMemoryRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID := r.Header.Get("X-Copilot-Session")
			if !limiter.allow(callerID) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
