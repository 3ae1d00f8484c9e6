package http

import (
	"sync"
	"time"
)

const (
	defaultRateLimit  = 60
	rateLimitWindow   = time.Minute
	rateLimitStaleAge = 10 * time.Minute
)

// rateLimiter is a fixed-window request counter per client IP. It is only
// applied to requests that write to the gateway or create sessions.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	clients map[string]*clientWindow
	now     func() time.Time
}

type clientWindow struct {
	start    time.Time
	last     time.Time
	requests int
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	return &rateLimiter{
		limit:   limit,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

// allow records one request from clientIP and reports whether it fits in
// the current window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[clientIP]
	if !ok || now.Sub(c.start) >= rateLimitWindow {
		rl.clients[clientIP] = &clientWindow{start: now, last: now, requests: 1}
		return true
	}
	c.requests++
	c.last = now
	if c.requests > rl.limit {
		if metrics != nil {
			metrics.rateLimitHits.Add(1)
		}
		return false
	}
	return true
}

// CleanExpired drops clients idle for longer than rateLimitStaleAge so the
// limiter can be swept by a cache.Manager.
func (rl *rateLimiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rateLimitStaleAge)
	removed := 0
	for ip, c := range rl.clients {
		if c.last.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}
