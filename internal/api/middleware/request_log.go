package middleware

import (
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
)

// 探活与指标抓取请求量大且无业务信息，不进访问日志。
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RequestLogger logs HTTP request/response metadata.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if _, quiet := quietPaths[path]; quiet {
			return
		}

		status := c.Writer.Status()
		latency := time.Since(start)
		method := c.Request.Method
		clientIP := c.ClientIP()

		if logger == nil {
			return
		}
		attrs := []any{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.String("client_ip", clientIP),
			slog.String("latency", latency.String()),
		}
		if status >= 500 {
			logger.Error("http request", attrs...)
			return
		}
		logger.Info("http request", attrs...)
	}
}
