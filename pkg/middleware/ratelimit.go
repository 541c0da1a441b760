package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
)

type window struct {
	count    int
	resetsAt time.Time
}

// RateLimiter is a fixed-window in-memory counter keyed by caller. It bounds
// external-call fan-out per user (initiate/verify) and per source IP
// (webhooks); it is not a correctness mechanism.
type RateLimiter struct {
	mu      sync.Mutex
	data    map[string]window
	limit   int
	per     time.Duration
	stopped chan struct{}
}

func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	rl := &RateLimiter{
		data:    make(map[string]window),
		limit:   limit,
		per:     per,
		stopped: make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.data[key]
	if !ok || now.After(w.resetsAt) {
		rl.data[key] = window{count: 1, resetsAt: now.Add(rl.per)}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	rl.data[key] = w
	return true
}

func (rl *RateLimiter) Stop() {
	close(rl.stopped)
}

// janitor sweeps expired windows so idle keys do not accumulate.
func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.per)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopped:
			return
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for k, w := range rl.data {
				if now.After(w.resetsAt) {
					delete(rl.data, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// PerUserRateLimit keys on the authenticated user id; it must run after
// JWTAuthMiddleware.
func PerUserRateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}
		if !rl.Allow(key) {
			utils.RespondError(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// PerIPRateLimit keys on the caller's source IP, used for the webhook route.
func PerIPRateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			utils.RespondError(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
