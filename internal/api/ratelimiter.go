package api

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Probes and scrapes bypass the limiter so a busy allocator never looks unhealthy.
var unlimitedPaths = map[string]struct{}{
	"/api/health": {},
	"/metrics":    {},
}

type rateLimiter interface {
	Allow() bool
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *tokenBucket) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

// retryAfter is the wait until the next token, rounded up to whole seconds.
func (l *tokenBucket) retryAfter() time.Duration {
	if l == nil || l.limiter == nil || l.limiter.Limit() <= 0 {
		return time.Second
	}
	wait := time.Duration(float64(time.Second) / float64(l.limiter.Limit()))
	return max(wait.Round(time.Second), time.Second)
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := unlimitedPaths[r.URL.Path]; ok || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		retry := time.Second
		if tb, ok := limiter.(*tokenBucket); ok {
			retry = tb.retryAfter()
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
