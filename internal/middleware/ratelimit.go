package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	limiters sync.Map // client key -> *limiterEntry
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type limiterEntry struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows rps requests per second per client with the given
// burst.
func NewRateLimiter(rps float64, burst int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		logger:  logger,
		now:     time.Now,
	}
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if rl.limiter(key).Allow() {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.Warn("rate limit exceeded",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("client", key),
			zap.String("path", r.URL.Path),
		)
		w.Header().Set("Retry-After", "1")
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "too many requests, try again later",
			"code":  "rate_limited",
		})
	})
}

// Cleanup drops idle client limiters until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

func (rl *RateLimiter) prune() {
	now := rl.now()
	rl.limiters.Range(func(key, value any) bool {
		e := value.(*limiterEntry)
		e.mu.Lock()
		idle := now.Sub(e.lastAccess) > rl.idleTTL
		e.mu.Unlock()
		if idle {
			rl.limiters.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	v, ok := rl.limiters.Load(key)
	if !ok {
		v, _ = rl.limiters.LoadOrStore(key, &limiterEntry{
			limiter: rate.NewLimiter(rl.rps, rl.burst),
		})
	}
	e := v.(*limiterEntry)
	e.mu.Lock()
	e.lastAccess = rl.now()
	e.mu.Unlock()
	return e.limiter
}

// clientKey is the request IP. RealIP has already rewritten RemoteAddr when
// the server sits behind a proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
