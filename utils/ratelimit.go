package utils

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Buckets refill completely within a minute, so a client idle this long can
// be forgotten without loosening the limit.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginRateLimiter hands out one token bucket per client IP.
type LoginRateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	perMin    int
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

func NewLoginRateLimiter(perMin int, logger *zap.Logger) *LoginRateLimiter {
	if perMin <= 0 {
		perMin = 10
	}
	return &LoginRateLimiter{
		visitors: make(map[string]*visitor),
		perMin:   perMin,
		now:      time.Now,
		logger:   logger,
	}
}

func (l *LoginRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) >= limiterIdleTTL {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *LoginRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.getLimiter(ip).Allow() {
			l.logger.Warn("login rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts. Try again later."})
			return
		}
		c.Next()
	}
}
