package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie 会话 Cookie 名。
const SessionCookie = "teamspace_session"

// sessionTTL 会话有效期。
const sessionTTL = 24 * time.Hour

// SessionClaims 会话 JWT 载荷：Subject 是用户邮箱。
type SessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// SessionManager 签发与校验会话令牌。
type SessionManager struct {
	secret []byte
}

// NewSessionManager 创建会话管理器。
func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{secret: []byte(secret)}
}

// Issue 为邮箱+角色签发会话令牌。
func (m *SessionManager) Issue(email, role string) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse 校验令牌并返回载荷。
func (m *SessionManager) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
