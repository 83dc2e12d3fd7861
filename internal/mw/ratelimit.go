package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientRateLimiter stores a rate limiter per client key.
type ClientRateLimiter struct {
	clients map[string]*rate.Limiter
	mu      *sync.RWMutex
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a new ClientRateLimiter.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*rate.Limiter),
		mu:      &sync.RWMutex{},
		r:       r,
		b:       b,
	}
}

func (l *ClientRateLimiter) add(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Another request may have created it between the read and write locks.
	if limiter, exists := l.clients[key]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.clients[key] = limiter
	return limiter
}

// GetLimiter returns the rate limiter for a client key.
func (l *ClientRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.clients[key]
	l.mu.RUnlock()

	if !exists {
		return l.add(key)
	}
	return limiter
}

// clientKey buckets identified callers by user id and anonymous ones by IP.
func clientKey(c *gin.Context) string {
	if userID := c.GetHeader(UserIDHeader); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter is a middleware for per-client rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(clientKey(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
