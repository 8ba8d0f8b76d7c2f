package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter decides whether a request under key may proceed.
type RateLimiter interface {
	Allow(key string) (bool, RateLimitInfo)
}

type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiter is an in-process token bucket per key.
type TokenBucketLimiter struct {
	rate    float64
	burst   int
	now     func() time.Time
	idleTTL time.Duration

	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

// NewTokenBucketLimiter allows rate requests per second with bursts of up
// to burst. Buckets idle for longer than idleTTL are dropped by Sweep.
func NewTokenBucketLimiter(rate float64, burst int, idleTTL time.Duration) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:    rate,
		burst:   burst,
		now:     time.Now,
		idleTTL: idleTTL,
		buckets: make(map[string]*tokenBucket),
	}
}

func (l *TokenBucketLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(l.burst), lastRefill: now}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastRefill = now

	info := RateLimitInfo{Limit: l.burst, ResetAt: now.Add(time.Duration(float64(time.Second) / l.rate))}
	if b.tokens >= 1 {
		b.tokens--
		info.Remaining = int(b.tokens)
		return true, info
	}
	return false, info
}

// Sweep drops idle buckets and returns how many remain.
func (l *TokenBucketLimiter) Sweep() int {
	threshold := l.now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		b.mu.Lock()
		if b.lastRefill.Before(threshold) {
			delete(l.buckets, key)
		}
		b.mu.Unlock()
	}
	return len(l.buckets)
}

// RateLimit limits requests per signed-in user, or per client IP for
// anonymous callers.
func RateLimit(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if u := CurrentUser(c); u != nil {
			key = "user:" + u.ID
		}

		allowed, info := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		if !allowed {
			retry := int(time.Until(info.ResetAt).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorBody{
				Code:    "RATE_LIMITED",
				Message: "rate limit exceeded, please retry later",
			})
			return
		}
		c.Next()
	}
}
