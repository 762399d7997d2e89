package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// InquiryLimiterConfig bounds public inquiry submissions per client IP.
// This endpoint is unauthenticated, so it gets its own in-process token
// bucket independent of the Redis-backed limits.
type InquiryLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

// DefaultInquiryLimiterConfig derives limiter settings from a per-minute rate
func DefaultInquiryLimiterConfig(perMinute, burst int) InquiryLimiterConfig {
	if perMinute <= 0 {
		perMinute = 5
	}
	if burst <= 0 {
		burst = perMinute
	}
	return InquiryLimiterConfig{
		Rate:            rate.Limit(float64(perMinute) / 60.0),
		Burst:           burst,
		CleanupInterval: 5 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// InquiryLimiter manages per-IP token buckets for the public inquiry form
type InquiryLimiter struct {
	config InquiryLimiterConfig

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh chan struct{}
}

// NewInquiryLimiter creates an InquiryLimiter and starts its background
// cleanup of idle entries.
func NewInquiryLimiter(config InquiryLimiterConfig) *InquiryLimiter {
	il := &InquiryLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	go il.cleanupLoop()
	return il
}

// Stop ends the background cleanup goroutine
func (il *InquiryLimiter) Stop() {
	close(il.stopCh)
}

// Middleware returns the rate limiting middleware for the inquiry endpoint
func (il *InquiryLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := il.getOrCreate(IPKey(r))
			if !limiter.Allow() {
				retryAfter := int(math.Ceil(1.0 / float64(il.config.Rate)))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, `{"error":"rate_limit_exceeded","message":"Too many submissions. Please try again later."}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Len reports the number of tracked clients. Test and metrics helper.
func (il *InquiryLimiter) Len() int {
	il.mu.Lock()
	defer il.mu.Unlock()
	return len(il.limiters)
}

func (il *InquiryLimiter) getOrCreate(ip string) *rate.Limiter {
	il.mu.Lock()
	defer il.mu.Unlock()

	if cl, ok := il.limiters[ip]; ok {
		cl.lastAccess = time.Now()
		return cl.limiter
	}
	limiter := rate.NewLimiter(il.config.Rate, il.config.Burst)
	il.limiters[ip] = &clientLimiter{limiter: limiter, lastAccess: time.Now()}
	return limiter
}

func (il *InquiryLimiter) cleanupLoop() {
	ticker := time.NewTicker(il.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			il.cleanup()
		case <-il.stopCh:
			return
		}
	}
}

func (il *InquiryLimiter) cleanup() {
	ttl := il.config.CleanupInterval * 2
	now := time.Now()

	il.mu.Lock()
	defer il.mu.Unlock()
	for ip, cl := range il.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(il.limiters, ip)
		}
	}
}
