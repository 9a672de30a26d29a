package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	ierr "github.com/wellcare/billing/internal/errors"
	"golang.org/x/time/rate"
)

// clientLimiter tracks one token bucket per client IP. Entries are never
// evicted; the clinic's client population is small and bounded.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (l *clientLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = lim
	return lim
}

// RateLimitMiddleware throttles requests per client IP
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := newClientLimiter(rps, burst)
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ierr.ErrorResponse{
				Success: false,
				Error:   ierr.ErrorDetail{Display: "Too many requests, slow down"},
			})
			return
		}
		c.Next()
	}
}
