package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/storesync/storesync/internal/httputil"
)

// staleLimiterAge is how long an idle client keeps its limiter.
const staleLimiterAge = time.Hour

// ipRateLimiter holds one token bucket per client IP. Idle buckets are swept
// during lookups, at most once per sweepInterval.
type ipRateLimiter struct {
	rps           float64
	burst         int
	sweepInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	limiters  map[string]*ipLimiterEntry
	lastSweep time.Time
}

type ipLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		rps:           rps,
		burst:         burst,
		sweepInterval: 5 * time.Minute,
		now:           time.Now,
		limiters:      make(map[string]*ipLimiterEntry),
		lastSweep:     time.Now(),
	}
}

func (s *ipRateLimiter) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepInterval {
		threshold := now.Add(-staleLimiterAge)
		for key, entry := range s.limiters {
			if entry.lastAccess.Before(threshold) {
				delete(s.limiters, key)
			}
		}
		s.lastSweep = now
	}

	entry, ok := s.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.limiters[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}

func (s *ipRateLimiter) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimitMiddleware enforces a per client IP token bucket on the operations API.
// c.ClientIP() honours X-Forwarded-For and X-Real-IP from trusted proxies.
// Requests over the limit get 429 with a Retry-After header in whole seconds.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	return rateLimitMiddleware(newIPRateLimiter(rps, burst), logger)
}

func rateLimitMiddleware(store *ipRateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := store.get(clientIP)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(math.Ceil(reservation.Delay().Seconds()))
			reservation.Cancel()

			logger.Debug("rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Too many requests. Please retry after the specified delay.",
			})
			return
		}

		c.Next()
	}
}
