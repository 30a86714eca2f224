package middleware

import (
	"net/http"
	"sync"
	"time"

	"posadmin/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	purgeInterval = 5 * time.Minute
	idleTTL       = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter keeps one token bucket per client IP.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

func NewIPLimiter(rps float64, burst int) *IPLimiter {
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *IPLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Allow consumes one token for ip.
func (l *IPLimiter) Allow(ip string) bool { return l.get(ip).Allow() }

// Purge drops visitors idle for longer than idle and returns how many went.
func (l *IPLimiter) Purge(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-idle)
	n := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

// StartPurge removes idle visitors periodically until stop is closed.
func (l *IPLimiter) StartPurge(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if n := l.Purge(idleTTL); n > 0 {
					log.Debug().Int("purged", n).Msg("rate limiter visitors purged")
				}
			}
		}
	}()
}

// Middleware rejects requests over the per-IP rate with 429.
func (l *IPLimiter) Middleware(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// RateLimiter is the general API limiter.
func RateLimiter(l *IPLimiter) gin.HandlerFunc {
	return l.Middleware("Too many requests. Please try again shortly.")
}

// LoginRateLimiter allows a burst of 5 login attempts, refilled at 20 per minute.
func LoginRateLimiter(l *IPLimiter) gin.HandlerFunc {
	return l.Middleware("Too many login attempts. Try again in a minute.")
}

// NewLoginLimiter is the limiter LoginRateLimiter expects.
func NewLoginLimiter() *IPLimiter { return NewIPLimiter(20.0/60.0, 5) }
