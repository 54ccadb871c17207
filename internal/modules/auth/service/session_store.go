// File: internal/modules/auth/service/session_store.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chainpulse-self/internal/pkg/redis"
	"chainpulse-self/internal/pkg/xerrors"
)

// ErrSessionNotFound 本地没有对应的会话记录。
var ErrSessionNotFound = errors.New("session record not found")

// SessionRecord 网关侧的会话记录。
// PlatformCookie 是回源平台的凭据；ProviderToken 仅邮箱登录持有（Kratos 会话令牌），
// 登出时要一并作废。
type SessionRecord struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	Provider       string    `json:"provider"`
	PlatformCookie string    `json:"platform_cookie"`
	ProviderToken  string    `json:"provider_token,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	ClientIP       string    `json:"client_ip,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
}

// SessionStore 会话记录的持久化接口。
type SessionStore interface {
	Save(ctx context.Context, record *SessionRecord, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessionStore 基于 Redis 的会话存储。
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore 创建 Redis 会话存储。
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("gw_session:%s", sessionID)
}

// Save 写入会话记录并设置过期时间。
func (s *RedisSessionStore) Save(ctx context.Context, record *SessionRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return xerrors.NewWithError(xerrors.CodeCacheError, "序列化会话记录失败", err)
	}
	if err := s.client.SetWithTTL(ctx, sessionKey(record.SessionID), payload, ttl); err != nil {
		return xerrors.NewWithError(xerrors.CodeCacheError, "写入会话记录失败", err)
	}
	return nil
}

// Get 读取会话记录，不存在时返回 ErrSessionNotFound。
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	raw, err := s.client.GetString(ctx, sessionKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, ErrSessionNotFound
		}
		return nil, xerrors.NewWithError(xerrors.CodeCacheError, "读取会话记录失败", err)
	}

	var record SessionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeCacheError, "会话记录格式异常", err)
	}
	return &record, nil
}

// Delete 删除会话记录。删除不存在的记录不算错误。
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.DeleteKey(ctx, sessionKey(sessionID)); err != nil {
		return xerrors.NewWithError(xerrors.CodeCacheError, "删除会话记录失败", err)
	}
	return nil
}

// MemorySessionStore 进程内会话存储，测试与单机开发用。
type MemorySessionStore struct {
	mu      sync.RWMutex
	records map[string]*SessionRecord
}

// NewMemorySessionStore 创建内存会话存储。
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{records: make(map[string]*SessionRecord)}
}

func (s *MemorySessionStore) Save(ctx context.Context, record *SessionRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.SessionID] = &clone
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

// Len 返回记录条数，仅测试用。
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
