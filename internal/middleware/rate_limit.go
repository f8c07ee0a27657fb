package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmiseikis/site-api/internal/ratelimit"
	"golang.org/x/time/rate"
)

const visitorSweepInterval = time.Minute

// Throttle is a per-client token bucket for the read-only endpoints. The
// contact endpoint has its own fixed-window limiter and is not throttled here.
type Throttle struct {
	visitors map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit // requests per second
	b        int        // burst size
	stop     chan struct{}
	stopOnce sync.Once
}

// NewThrottle creates a throttle and starts its idle-visitor sweeper.
// Call Stop on shutdown.
func NewThrottle(r rate.Limit, b int) *Throttle {
	t := &Throttle{
		visitors: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
		stop:     make(chan struct{}),
	}

	go t.sweep()

	return t
}

func (t *Throttle) visitor(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	limiter, exists := t.visitors[key]
	if !exists {
		limiter = rate.NewLimiter(t.r, t.b)
		t.visitors[key] = limiter
	}

	return limiter
}

// sweep drops visitors whose bucket has refilled
func (t *Throttle) sweep() {
	ticker := time.NewTicker(visitorSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			for key, limiter := range t.visitors {
				if limiter.Tokens() >= float64(t.b) {
					delete(t.visitors, key)
				}
			}
			t.mu.Unlock()
		}
	}
}

// Stop ends the sweeper goroutine
func (t *Throttle) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Middleware returns a Gin middleware function keyed by the forwarded client identifier
func (t *Throttle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := t.visitor(ratelimit.ClientIdentifier(c.Request.Header))

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
