package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoginRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewLoginRateLimiter(2, zap.NewNop())

	r := gin.New()
	r.POST("/login", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	attempt := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, attempt("10.0.0.1"))
	assert.Equal(t, http.StatusOK, attempt("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("10.0.0.1"))

	// Buckets are per client.
	assert.Equal(t, http.StatusOK, attempt("10.0.0.2"))
}

func TestLoginRateLimiterForgetsIdleClients(t *testing.T) {
	limiter := NewLoginRateLimiter(2, zap.NewNop())
	clock := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	limiter.getLimiter("10.0.0.1")
	limiter.getLimiter("10.0.0.2")
	assert.Len(t, limiter.visitors, 2)

	clock = clock.Add(5 * time.Minute)
	limiter.getLimiter("10.0.0.2")

	clock = clock.Add(limiterIdleTTL)
	limiter.getLimiter("10.0.0.3")
	assert.Len(t, limiter.visitors, 1)
	assert.Contains(t, limiter.visitors, "10.0.0.3")

	// A client seen within the window survives the sweep.
	clock = clock.Add(limiterIdleTTL - time.Minute)
	limiter.getLimiter("10.0.0.3")
	clock = clock.Add(2 * time.Minute)
	limiter.getLimiter("10.0.0.4")
	assert.Len(t, limiter.visitors, 2)
}
