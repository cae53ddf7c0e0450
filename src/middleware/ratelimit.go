package middleware

import (
	"net/http"
	"sync"

	"capsule-service/src/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedKeys bounds the limiter map. Orientation streams are bursty and
// short-lived; when the map fills up it is reset rather than LRU-evicted,
// which briefly over-admits instead of leaking memory.
const maxTrackedKeys = 10000

// SampleRateLimiter throttles orientation-sample traffic with one token
// bucket per session. Device-orientation events fire at up to 60Hz on some
// browsers; the limiter keeps a misbehaving client from monopolizing the
// engine without affecting other sessions.
type SampleRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewSampleRateLimiter builds a limiter admitting perSecond samples sustained
// with the given burst per session.
func NewSampleRateLimiter(perSecond float64, burst int) *SampleRateLimiter {
	if perSecond <= 0 {
		perSecond = 30
	}
	if burst <= 0 {
		burst = 60
	}
	return &SampleRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *SampleRateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.limiters) >= maxTrackedKeys {
		l.limiters = make(map[string]*rate.Limiter)
	}

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// Forget drops the bucket for a session, freeing its slot once the session
// is gone.
func (l *SampleRateLimiter) Forget(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

// Middleware returns a gin handler that rejects over-rate requests with 429.
// Requests are keyed by the session id path parameter, falling back to the
// client address for session-less routes.
func (l *SampleRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("id")
		if key == "" {
			key = c.ClientIP()
		}

		if !l.limiterFor(key).Allow() {
			utils.SendError(c, http.StatusTooManyRequests, "Too Many Requests",
				"sample rate limit exceeded",
				"https://capsule-service.com/rate-limit", c.FullPath())
			c.Abort()
			return
		}
		c.Next()
	}
}
