package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"teamspace/internal/pkg/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func rateLimitedRouter(limiter *ratelimit.Limiter, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/signin", RateLimit(limiter, logger), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit_RejectsWhenExhausted(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	limiter := ratelimit.NewLimiter(rdb, logger, 0.001, 1)
	r := rateLimitedRouter(limiter, logger)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/signin", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request within burst, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/signin", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("exhausted bucket should get 429, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "Too many requests") {
		t.Fatalf("unexpected rejection body: %s", second.Body.String())
	}
}

func TestRateLimit_FailsOpenWithWarning(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	s.Close() // 模拟 Redis 不可用

	logBuf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logBuf, nil))
	limiter := ratelimit.NewLimiter(rdb, logger, 1, 1)
	r := rateLimitedRouter(limiter, logger)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/signin", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("limiter outage must fail open, got %d", w.Code)
	}
	if !strings.Contains(logBuf.String(), "rate limiter unavailable") {
		t.Fatalf("fail-open should be logged, got: %s", logBuf.String())
	}
}
