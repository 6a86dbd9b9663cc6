package middleware

import (
	"net/http"
	"sync"
	"time"

	"payhook/internal/pkg/errors"
)

const bucketIdleTTL = 10 * time.Minute

// RateLimiter is a per-key token bucket refilled at limit tokens per minute.
type RateLimiter struct {
	store   *sync.Map // map[string]*bucket
	limit   int
	proxies *TrustedProxies
	now     func() time.Time
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
}

// NewRateLimiter allows perMinute requests per key. A non-positive value
// disables limiting. proxies may be nil.
func NewRateLimiter(perMinute int, proxies *TrustedProxies) *RateLimiter {
	rl := &RateLimiter{store: &sync.Map{}, limit: perMinute, proxies: proxies, now: time.Now}
	if perMinute > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(bucketIdleTTL)
	defer ticker.Stop()

	for range ticker.C {
		rl.evictIdle()
	}
}

func (rl *RateLimiter) evictIdle() {
	now := rl.now()
	rl.store.Range(func(key, value interface{}) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if now.Sub(b.lastAccess) > bucketIdleTTL {
			rl.store.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	now := rl.now()

	val, _ := rl.store.LoadOrStore(key, &bucket{
		tokens:     float64(rl.limit),
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	refill := now.Sub(b.lastRefill).Seconds() * float64(rl.limit) / 60.0
	if refill > 0 {
		b.tokens += refill
		if b.tokens > float64(rl.limit) {
			b.tokens = float64(rl.limit)
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// AllowRequest spends a token from the bucket of r's client IP.
func (rl *RateLimiter) AllowRequest(r *http.Request) bool {
	return rl.Allow(rl.proxies.ClientIP(r))
}

// Handle limits requests per client IP. The webhook receiver does not use it:
// throttled deliveries there still have to be logged.
func (rl *RateLimiter) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.AllowRequest(r) {
			w.Header().Set("Retry-After", "60")
			errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
			return
		}
		next(w, r)
	}
}
