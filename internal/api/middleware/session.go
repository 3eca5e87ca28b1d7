package middleware

import (
	"strings"

	"teamspace/internal/api/auth"

	"github.com/gin-gonic/gin"
)

// Session 解析请求携带的会话令牌并把身份写入上下文。
//
// 支持 HttpOnly Cookie 与 Authorization: Bearer 两种携带方式。
// 令牌缺失或无效不会中断请求，由各 Handler 自行决定是否要求认证。
func Session(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookie, err := c.Cookie(auth.SessionCookie); err == nil {
			token = cookie
		}
		if token == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			}
		}
		if token == "" {
			c.Next()
			return
		}

		claims, err := sessions.Parse(token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(auth.CtxEmail, claims.Subject)
		c.Set(auth.CtxRole, claims.Role)
		c.Next()
	}
}
