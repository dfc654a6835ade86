package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/R3E-Network/classledger/internal/errors"
	internalhttputil "github.com/R3E-Network/classledger/internal/httputil"
	"github.com/R3E-Network/classledger/internal/logging"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows requests per client address per window, refilling
// continuously.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	requests int
	window   time.Duration
	rate     rate.Limit
	logger   *logging.Logger
	now      func() time.Time
	message  string
	ips      *IPResolver
}

// NewRateLimiter creates a limiter allowing requests per window with a
// burst of requests.
func NewRateLimiter(requests int, window time.Duration, logger *logging.Logger) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		requests: requests,
		window:   window,
		rate:     rate.Limit(float64(requests) / window.Seconds()),
		logger:   logger,
		now:      time.Now,
		message:  "too many requests, please try again later",
	}
}

// WithMessage overrides the 429 message.
func (rl *RateLimiter) WithMessage(msg string) *RateLimiter {
	rl.message = msg
	return rl
}

// WithIPResolver sets how client addresses are derived. Without one only
// the socket address is used.
func (rl *RateLimiter) WithIPResolver(res *IPResolver) *RateLimiter {
	rl.ips = res
	return rl
}

// WithClock overrides the time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Allow reports whether key may make a request now.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.requests)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.ips.ClientIP(r)
		if !rl.Allow(key) {
			rl.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]interface{}{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			})
			serviceErr := errors.RateLimitExceeded(rl.requests, rl.window.String())
			internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), rl.message, serviceErr.Details)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Prune removes clients idle for longer than idle.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	cutoff := rl.now().Add(-idle)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}
