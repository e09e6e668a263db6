package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterConfig throttles requests per client IP. It runs in front of the
// per-phone limit and only protects the process from floods.
type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      RateLimiterConfig
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.visitors[ip] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (l *ipLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if time.Since(v.lastSeen) > l.cfg.TTL {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// RateLimiterMiddleware rejects clients that exceed the configured rate with
// 429. Idle visitors are forgotten until ctx is cancelled.
func RateLimiterMiddleware(ctx context.Context, config RateLimiterConfig) gin.HandlerFunc {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}
	if config.Burst == 0 {
		config.Burst = config.RequestsPerSecond
	}

	l := &ipLimiter{visitors: make(map[string]*visitor), cfg: config}
	go l.cleanup(ctx)

	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
