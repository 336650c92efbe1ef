// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements per-client rate limiting. RateLimit() enforces any
// Limiter; two are provided:
//
//   - RateLimiter: an in-memory token bucket per client with opportunistic
//     garbage collection, for single-process deployments.
//   - RedisLimiter (ratelimit_redis.go): a fixed-window counter shared by all
//     replicas through Redis.
//
// Idempotent replays flagged by IdempotencyValidator skip limiting, so a
// client retrying a create is never throttled into a duplicate.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by client address ("ip:<addr>"). The service has
// no user identity, so the client IP is the only stable key.
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// Limiter decides whether one more request for key is allowed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// visitor holds a single rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter.
//
// Buckets are created on demand. Idle buckets are evicted after a TTL during
// lookups to keep memory bounded. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size. Burst values <= 0 are coerced to 1.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// Allow consumes one token from key's bucket. It never fails.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return rl.getVisitor(key).Allow(), nil
}

// getVisitor returns (and touches) the limiter for key, creating it if
// absent. Every 5000 lookups idle entries are evicted first, so a stale bucket
// can be dropped even when it is the one being fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay that should not consume rate-limit budget.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// RateLimit returns a Gin middleware that enforces l per keyFn identity.
//
// Denied requests get:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{"request_id": "...", "code": "too_many_requests", "message": "rate limit exceeded"}
//
// A limiter error (e.g. Redis unreachable) is logged and the request is let
// through.
func RateLimit(l Limiter, keyFn keyFunc) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = KeyByClientIP()
	}
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		ok, err := l.Allow(c.Request.Context(), keyFn(c))
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("rate limiter unavailable; allowing request")
			c.Next()
			return
		}
		if ok {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
