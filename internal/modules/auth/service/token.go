// File: internal/modules/auth/service/token.go
package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chainpulse-self/internal/pkg/xerrors"
)

// GatewayClaims 网关 Cookie 里携带的 JWT 声明。
// 只放 session_id 和 user_id，用户画像一律以 Resolve 的结果为准。
type GatewayClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenManager 负责网关会话令牌的签发与解析（HS256）。
type TokenManager struct {
	secret   []byte
	tokenTTL time.Duration
	clock    func() time.Time
}

// NewTokenManager 创建令牌管理器。
func NewTokenManager(secret string, tokenTTL time.Duration) *TokenManager {
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		clock:    time.Now,
	}
}

// Issue 签发会话令牌。
func (m *TokenManager) Issue(sessionID, userID string) (string, error) {
	now := m.clock()
	claims := &GatewayClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse 解析会话令牌，返回其中的 session_id。
// 任何解析失败都归为会话过期，调用方按未登录处理。
func (m *TokenManager) Parse(tokenString string) (*GatewayClaims, *xerrors.AppError) {
	token, err := jwt.ParseWithClaims(tokenString, &GatewayClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, xerrors.NewSessionExpiredError()
	}

	claims, ok := token.Claims.(*GatewayClaims)
	if !ok || claims.SessionID == "" {
		return nil, xerrors.NewSessionExpiredError()
	}
	return claims, nil
}

// TTL 返回令牌有效期，Cookie MaxAge 与 Redis TTL 与之对齐。
func (m *TokenManager) TTL() time.Duration {
	return m.tokenTTL
}
