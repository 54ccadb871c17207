package entity

import (
	"time"

	"github.com/aarondl/null/v8"
)

// LoginHistory 登录历史实体
type LoginHistory struct {
	ID     int64  `boil:"id" db:"id" json:"id"`
	UserID string `boil:"user_id" db:"user_id" json:"user_id"`

	// 登录信息
	Provider   string      `boil:"provider" db:"provider" json:"provider"` // wallet, google, apple, email
	Status     string      `boil:"status" db:"status" json:"status"`       // success, failed
	FailReason null.String `boil:"fail_reason" db:"fail_reason" json:"fail_reason,omitempty"`
	OccurredAt time.Time   `boil:"occurred_at" db:"occurred_at" json:"occurred_at"`

	// 客户端信息
	IPAddress string      `boil:"ip_address" db:"ip_address" json:"ip_address"`
	UserAgent null.String `boil:"user_agent" db:"user_agent" json:"user_agent,omitempty"`
}

// TableName 返回表名
func (LoginHistory) TableName() string {
	return "login_history"
}

// IsSuccessful 检查登录是否成功
func (h *LoginHistory) IsSuccessful() bool {
	return h.Status == string(LoginStatusSuccess)
}

// LoginProviderEnum 登录提供方枚举
type LoginProviderEnum string

const (
	LoginProviderWallet LoginProviderEnum = "wallet"
	LoginProviderGoogle LoginProviderEnum = "google"
	LoginProviderApple  LoginProviderEnum = "apple"
	LoginProviderEmail  LoginProviderEnum = "email"
)

// LoginStatusEnum 登录状态枚举
type LoginStatusEnum string

const (
	LoginStatusSuccess LoginStatusEnum = "success"
	LoginStatusFailed  LoginStatusEnum = "failed"
)
