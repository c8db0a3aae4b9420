package middleware

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimitedRouter(t *testing.T, cfg RateLimitConfig) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, zap.NewNop())
	r := gin.New()
	r.POST("/v1/policies/consent", limiter.Limit(cfg), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r, mr
}

func TestRateLimiter_SetsWindowOnFirstHit(t *testing.T) {
	cfg := RateLimitConfig{MaxRequests: 2, Window: time.Minute, KeyPrefix: "rl:consent"}
	r, mr := newLimitedRouter(t, cfg)

	w := serve(r, http.MethodPost, "/v1/policies/consent", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))

	// httptest.NewRequest подставляет RemoteAddr 192.0.2.1:1234
	key := "rl:consent:192.0.2.1:/v1/policies/consent"
	assert.Equal(t, time.Minute, mr.TTL(key))
	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	cfg := RateLimitConfig{MaxRequests: 2, Window: time.Minute, KeyPrefix: "rl:consent"}
	r, mr := newLimitedRouter(t, cfg)
	key := "rl:consent:192.0.2.1:/v1/policies/consent"

	w := serve(r, http.MethodPost, "/v1/policies/consent", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	mr.FastForward(20 * time.Second)
	w = serve(r, http.MethodPost, "/v1/policies/consent", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 40*time.Second, mr.TTL(key), "TTL ставится только на первый запрос окна")

	w = serve(r, http.MethodPost, "/v1/policies/consent", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "40", w.Header().Get("Retry-After"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "40", w.Header().Get("X-RateLimit-Reset"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body["error_type"])
	assert.Equal(t, float64(40), body["retry_after"])

	mr.FastForward(41 * time.Second)
	w = serve(r, http.MethodPost, "/v1/policies/consent", nil)
	assert.Equal(t, http.StatusCreated, w.Code, "после окна счётчик начинается заново")
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_CountsClientsSeparately(t *testing.T) {
	cfg := RateLimitConfig{MaxRequests: 1, Window: time.Minute, KeyPrefix: "rl:consent"}
	r, _ := newLimitedRouter(t, cfg)

	w := serve(r, http.MethodPost, "/v1/policies/consent", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(r, http.MethodPost, "/v1/policies/consent", map[string]string{"X-Forwarded-For": "198.51.100.7"})
	assert.Equal(t, http.StatusCreated, w.Code)
}
