package interceptors

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// ClientRateLimiter hands out one token bucket per client address.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewClientRateLimiter(perSecond float64, burst int) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    max(burst, 1),
	}
}

func (rl *ClientRateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// bound memory; forgetting every bucket only ever gives clients a fresh burst
	if len(rl.limiters) >= maxTrackedClients {
		rl.limiters = make(map[string]*rate.Limiter)
	}

	limiter, ok := rl.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[client] = limiter
	}

	return limiter.Allow()
}

// RateLimit rejects requests with 429 once the calling client runs out of tokens. A nil
// limiter disables the middleware.
func RateLimit(logger *logrus.Logger, rl *ClientRateLimiter, next http.HandlerFunc) http.HandlerFunc {
	if rl == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if !rl.Allow(client) {
			logger.WithContext(r.Context()).WithFields(logrus.Fields{
				"client": client,
				"path":   r.URL.Path,
			}).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(1))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
