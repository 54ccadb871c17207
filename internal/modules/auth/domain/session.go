// File: internal/modules/auth/domain/session.go
package domain

import "time"

// SessionState 登录态三态机。
// 启动时为 Unknown，一次 Resolve 之后收敛为 Unauthenticated 或 Authenticated，
// 不存在第四种状态。
type SessionState string

const (
	StateUnknown         SessionState = "unknown"
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticated   SessionState = "authenticated"
)

// UserInfo 平台后端返回的用户画像。
type UserInfo struct {
	UserID        string `json:"user_id"`
	Nickname      string `json:"nickname"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Email         string `json:"email,omitempty"`
	VIPLevel      int    `json:"vip_level"`
	TradeLevel    int    `json:"trade_level"`
	CanPublish    bool   `json:"can_publish"`
}

// Session 是登录态的唯一真值：Authenticated 时 User 非空，否则必为空。
type Session struct {
	State      SessionState `json:"state"`
	User       *UserInfo    `json:"user,omitempty"`
	ResolvedAt time.Time    `json:"resolved_at"`
}

// IsAuthenticated 判断当前是否已登录。
func (s Session) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// Unauthenticated 返回未登录会话。
func Unauthenticated(now time.Time) Session {
	return Session{State: StateUnauthenticated, ResolvedAt: now}
}

// Authenticated 返回已登录会话。
func Authenticated(user *UserInfo, now time.Time) Session {
	return Session{State: StateAuthenticated, User: user, ResolvedAt: now}
}
