package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

var (
	ncMu sync.RWMutex
	nc   *nats.Conn
)

// SetNatsConn 设置全局 NATS 连接（由 main 提供）
func SetNatsConn(conn *nats.Conn) {
	ncMu.Lock()
	defer ncMu.Unlock()
	nc = conn
}

// Connected 报告当前 NATS 连接是否可用，供健康检查使用。
func Connected() bool {
	ncMu.RLock()
	defer ncMu.RUnlock()
	return nc != nil && nc.Status() == nats.CONNECTED
}

// AuthEvent 登录态变更事件，供站内通知、风控等下游消费。
type AuthEvent struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublishAuthEvent 发布登录态变更事件
func PublishAuthEvent(ctx context.Context, subject string, event AuthEvent) error {
	ncMu.RLock()
	conn := nc
	ncMu.RUnlock()
	if conn == nil {
		return nil // 没有连接时静默降级
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal auth event failed: %w", err)
	}
	return conn.Publish(subject, data)
}

// Default subjects
const (
	SubjectAuthLogin  = "auth.login"
	SubjectAuthLogout = "auth.logout"
)
