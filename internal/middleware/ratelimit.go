package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxTrackedClients caps the visitor map so untrusted traffic cannot
// exhaust memory by cycling source addresses.
const maxTrackedClients = 100000

// RateLimiter throttles requests per client IP using token buckets.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	perSec   float64
	burst    float64
}

type visitor struct {
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing a sustained rate of perSec
// requests per second with the given burst size per client IP.
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		perSec:   perSec,
		burst:    float64(burst),
	}
}

// Handler enforces the per-IP limit, answering 429 with a Retry-After
// header once a client's bucket is drained.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, ok := rl.allow(clientIP(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !ok {
			w.Header().Set("Retry-After", strconv.FormatFloat(math.Ceil(wait), 'f', 0, 64))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow takes one token from the IP's bucket. It reports the tokens left
// and, when the bucket is empty, the seconds until the next token.
func (rl *RateLimiter) allow(ip string) (remaining int, wait float64, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, found := rl.visitors[ip]
	if !found {
		if len(rl.visitors) >= maxTrackedClients {
			return 0, 1 / rl.perSec, false
		}
		v = &visitor{tokens: rl.burst, refilled: now}
		rl.visitors[ip] = v
	}

	v.tokens = math.Min(rl.burst, v.tokens+now.Sub(v.refilled).Seconds()*rl.perSec)
	v.refilled = now
	v.lastSeen = now

	if v.tokens < 1 {
		return 0, (1 - v.tokens) / rl.perSec, false
	}
	v.tokens--
	return int(v.tokens), 0, true
}

// StartCleanup evicts idle visitors every interval until the returned
// cancel function is called.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// Len reports how many client IPs currently have a bucket.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// clientIP uses only RemoteAddr. Forwarding headers are spoofable and
// would let a client dodge its bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
