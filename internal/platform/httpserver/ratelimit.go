package httpserver

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/content-platform/internal/platform/api"
	"github.com/example/content-platform/internal/platform/auth"
)

// maxBuckets bounds the limiter's memory; full buckets are dropped first.
const maxBuckets = 10000

// RateLimiter is a per-client token bucket. Authenticated requests are
// keyed by user id, anonymous ones by client IP.
type RateLimiter struct {
	// TrustForwardedFor keys anonymous clients by the first X-Forwarded-For
	// entry. Enable it only behind a proxy that overwrites the header.
	TrustForwardedFor bool

	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a rate limiter with the given rate (req/s) and burst size.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		if len(rl.buckets) >= maxBuckets {
			rl.sweep(now)
		}
		b = &bucket{tokens: float64(rl.burst), last: now}
		rl.buckets[key] = b
	}

	b.tokens = rl.refill(b, now)
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) refill(b *bucket, now time.Time) float64 {
	tokens := b.tokens + now.Sub(b.last).Seconds()*rl.rate
	if tokens > float64(rl.burst) {
		tokens = float64(rl.burst)
	}
	return tokens
}

// sweep drops buckets that have refilled completely; they carry no state.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, b := range rl.buckets {
		if rl.refill(b, now) >= float64(rl.burst) {
			delete(rl.buckets, k)
		}
	}
}

func (rl *RateLimiter) clientKey(r *http.Request) string {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok && uid != "" {
		return "user:" + uid
	}
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); rl.TrustForwardedFor && fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return "ip:" + ip
}

// Middleware returns an HTTP middleware that rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.clientKey(r)) {
			api.RateLimited(w, "RATE_LIMITED", "Too many requests", RequestIDFromContext(r.Context()), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
