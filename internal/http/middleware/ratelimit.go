// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory, token-bucket rate limiter with one
// bucket per caller identity and opportunistic garbage collection. Habit
// check-ins arrive in short per-user bursts (open the app, tick a few
// routines), so bursts are absorbed and sustained hammering is turned away.
//
// The limiter is process-local: with several replicas each enforces its own
// budget. That is acceptable for edge-level abuse control, which is all this
// is meant to be.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// bucketGCThreshold is the number of lookups between idle-bucket sweeps.
const bucketGCThreshold = 5000

// keyFunc selects the identity that keys a rate-limit bucket. The returned
// string must be stable for the duration of a request.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP returns a keyFunc preferring the authenticated user (the
// "userID" context value set upstream) and falling back to the client IP.
// Keys are namespaced ("user:..." vs "ip:...") so a user id that happens to
// look like an address cannot collide with one.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// bucket pairs one caller's limiter with its last-seen time, which drives
// idle eviction.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-identity token bucket. Buckets are created on
// demand in a mutex-guarded map and idle ones are swept during lookups, so
// memory stays bounded without a background goroutine. Safe for concurrent
// use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	mu      sync.Mutex
	buckets map[string]*bucket

	ttl     time.Duration
	lookups uint64
}

// NewRateLimiter builds a limiter replenishing rps tokens per second with
// the given burst size (values <= 0 are coerced to 1), keyed by keyFn.
// Install it with Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// bucketFor returns the limiter for key, creating it if absent. Every
// bucketGCThreshold lookups it first sweeps buckets idle for at least the
// TTL. The sweep runs before the requested key is touched, so a stale
// bucket is evicted even when it is the one being fetched.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.lookups++
	if rl.lookups >= bucketGCThreshold {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		lim := b.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// Handler returns the Gin middleware. A request that finds its bucket empty
// is rejected with 429, a one-second Retry-After hint, and the standard
// error envelope:
//
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.keyFn(c)
		if rl.bucketFor(key).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
