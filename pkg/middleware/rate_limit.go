package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"examseat/pkg/logger"
)

// CallerRateLimiter applies a sliding-window request limit per authenticated
// caller. It runs after Authentication so the key is the verified user id,
// not anything the client can spoof.
type CallerRateLimiter struct {
	mu       sync.RWMutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	log      *logger.Logger
	stopCh   chan struct{}
}

func NewCallerRateLimiter(limit int, window time.Duration, log *logger.Logger) *CallerRateLimiter {
	limiter := &CallerRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		log:      log,
		stopCh:   make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *CallerRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for caller, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, caller)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *CallerRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *CallerRateLimiter) Allow(caller string) bool {
	if caller == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := make([]time.Time, 0, len(rl.requests[caller])+1)
	for _, ts := range rl.requests[caller] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[caller] = valid
		return false
	}

	rl.requests[caller] = append(valid, now)
	return true
}

func CallerRateLimit(limiter *CallerRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := ""
			if identity, ok := IdentityFromContext(r.Context()); ok {
				caller = strconv.FormatInt(identity.UserID, 10)
			}

			if !limiter.Allow(caller) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", requestIDFromContext(r.Context()),
					"caller", caller,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
