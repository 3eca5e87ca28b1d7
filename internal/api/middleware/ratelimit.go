package middleware

import (
	"log/slog"
	"net/http"

	"teamspace/internal/pkg/metrics"
	"teamspace/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit 按客户端 IP 限流，超限返回 429。
//
// 仅挂在认证相关路由上。限流器对 Redis 故障放行，这里记 warn 日志，
// 让故障在放行的同时对运维可见。
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable, failing open",
				slog.String("path", c.FullPath()),
				slog.String("error", err.Error()))
			c.Next()
			return
		}
		if !allowed {
			if metrics.RateLimitRejectedTotal != nil {
				metrics.RateLimitRejectedTotal.Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
