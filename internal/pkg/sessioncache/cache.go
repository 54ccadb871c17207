package sessioncache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/metrics"
)

// Session 描述缓存的登录会话快照，避免每次请求都回源平台后端。
type Session struct {
	SessionID     string
	UserID        string
	Nickname      string
	Email         string
	WalletAddress string
	CanPublish    bool
}

type entry struct {
	value     Session
	expiresAt time.Time
}

// Cache 提供线程安全的会话缓存,用于复用平台后端返回的身份数据。
type Cache struct {
	ttl     time.Duration
	metrics *metrics.LoginMetrics
	logger  log.Logger
	clock   func() time.Time
	mu      sync.RWMutex
	store   map[string]*entry
}

// New 返回默认 Cache 实例。
func New(ttl time.Duration, m *metrics.LoginMetrics, logger log.Logger) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if m == nil {
		m = metrics.DefaultLoginMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Cache{
		ttl:     ttl,
		metrics: m,
		logger:  logger.With("component", "session_cache"),
		clock:   time.Now,
		store:   make(map[string]*entry),
	}
}

// Get 返回缓存的 Session,命中时会刷新 TTL。
func (c *Cache) Get(ctx context.Context, provider, sessionID string) (Session, bool) {
	provider = NormalizeProvider(provider)
	if sessionID == "" {
		c.metrics.IncCacheMiss(provider)
		return Session{}, false
	}

	c.mu.RLock()
	value, ok := c.store[sessionID]
	c.mu.RUnlock()

	if !ok {
		c.metrics.IncCacheMiss(provider)
		c.logger.DebugContext(ctx, "session cache miss",
			log.String("provider", provider),
			log.String("session_hash", hashSessionID(sessionID)))
		return Session{}, false
	}

	now := c.clock()
	if now.After(value.expiresAt) {
		c.metrics.IncCacheEvicted(provider, "expired")
		c.logger.InfoContext(ctx, "session cache expired",
			log.String("provider", provider),
			log.String("session_hash", hashSessionID(sessionID)))
		c.mu.Lock()
		delete(c.store, sessionID)
		c.mu.Unlock()
		return Session{}, false
	}

	// 刷新 TTL
	c.mu.Lock()
	value.expiresAt = now.Add(c.ttl)
	c.mu.Unlock()

	c.metrics.IncCacheHit(provider)
	c.logger.DebugContext(ctx, "session cache hit",
		log.String("provider", provider),
		log.String("session_hash", hashSessionID(sessionID)))
	return value.value, true
}

// Set 写入或刷新 Session。
func (c *Cache) Set(ctx context.Context, provider string, session Session) {
	provider = NormalizeProvider(provider)
	if session.SessionID == "" {
		return
	}
	c.mu.Lock()
	c.store[session.SessionID] = &entry{
		value:     session,
		expiresAt: c.clock().Add(c.ttl),
	}
	c.mu.Unlock()
	c.logger.DebugContext(ctx, "session cache updated",
		log.String("provider", provider),
		log.String("session_hash", hashSessionID(session.SessionID)))
}

// Delete 主动剔除缓存（例如 logout / 后端判定会话无效）。
func (c *Cache) Delete(ctx context.Context, provider, sessionID, reason string) {
	provider = NormalizeProvider(provider)
	if sessionID == "" {
		return
	}
	c.mu.Lock()
	if _, ok := c.store[sessionID]; ok {
		delete(c.store, sessionID)
		c.metrics.IncCacheEvicted(provider, reason)
		c.logger.InfoContext(ctx, "session cache evicted",
			log.String("provider", provider),
			log.String("reason", reason),
			log.String("session_hash", hashSessionID(sessionID)))
	}
	c.mu.Unlock()
}

// Sweep 清理所有已过期条目，由定时任务周期性调用。
func (c *Cache) Sweep(ctx context.Context) int {
	now := c.clock()
	removed := 0

	c.mu.Lock()
	for sessionID, value := range c.store {
		if now.After(value.expiresAt) {
			delete(c.store, sessionID)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.metrics.IncCacheEvicted("session", "sweep")
		c.logger.InfoContext(ctx, "session cache sweep",
			log.Int("removed", removed))
	}
	return removed
}

// Len 返回当前缓存条目数。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// NormalizeProvider 确保 provider label 不为空。
func NormalizeProvider(provider string) string {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "unknown"
	}
	return provider
}

func hashSessionID(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	h := sha1.Sum([]byte(sessionID))
	return hex.EncodeToString(h[:])[:12]
}
