package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

var errRateLimited = errors.New("rate limit exceeded")

// visitorTTL is how long an idle client's limiter is kept.
const visitorTTL = 3 * time.Minute

// RateLimiter is a per-client token bucket keyed by client IP.
type RateLimiter struct {
	interval time.Duration
	burst    int

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client, refilled evenly, with
// bursts of up to burst requests. A burst below one is raised to one.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(max(perMinute, 1)),
		burst:    burst,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow consumes one token for key and reports whether the request may
// proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(rl.interval), rl.burst)}
		rl.visitors[key] = v
	}
	now := rl.now()
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// retryAfter is the whole number of seconds until one token refills.
func (rl *RateLimiter) retryAfter() int {
	secs := math.Ceil(rl.interval.Seconds())
	if secs < 1 {
		return 1
	}
	return int(secs)
}

// Cleanup drops limiters idle longer than visitorTTL, once per interval,
// until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-visitorTTL)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

func writeBody(w http.ResponseWriter, body map[string]string) {
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// Middleware rejects requests over budget with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			msg := catalog.MapError(errRateLimited)
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			writeBody(w, map[string]string{
				"error":   msg.Message,
				"message": msg.Message,
				"action":  msg.Action,
				"code":    msg.Code,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
