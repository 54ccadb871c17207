// File: internal/modules/auth/service/session_resolver.go
package service

import (
	"context"
	"time"

	"chainpulse-self/internal/modules/auth/client"
	"chainpulse-self/internal/modules/auth/domain"
	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/metrics"
	"chainpulse-self/internal/pkg/sessioncache"
	"chainpulse-self/internal/pkg/xerrors"
)

// PlatformAPI 平台后端能力，由 client.PlatformClient 实现。
type PlatformAPI interface {
	ExchangeLogin(ctx context.Context, method domain.LoginMethod) (*client.ExchangeResult, *xerrors.AppError)
	Profile(ctx context.Context, platformCookie string) (*domain.UserInfo, *xerrors.AppError)
	Logout(ctx context.Context, platformCookie string) *xerrors.AppError
}

// IdentityAPI 身份服务能力，由 client.KratosClient 实现。
type IdentityAPI interface {
	EmailLogin(ctx context.Context, identifier, password string) (*client.IdentityResult, *xerrors.AppError)
	Logout(ctx context.Context, sessionToken string) *xerrors.AppError
}

// PermissionAPI 权限服务能力，由 client.PermissionClient 实现。
type PermissionAPI interface {
	CanPublish(ctx context.Context, userID string) (bool, error)
}

// Resolve 的结果分类，用于指标与日志。
const (
	outcomeAuthenticated  = "authenticated"
	outcomeNoSession      = "no_session"
	outcomeBackendDenied  = "backend_denied"
	outcomeTransportError = "transport_error"
)

// SessionResolver 把「本地会话记录 + 平台回源」收敛为确定的登录态。
//
// 约定：
//   - Resolve 从不返回错误，任何失败都收敛为未登录（fail-open 到未登录态，绝不 fail-closed 挡住页面）。
//   - 回源只做一次，不重试；transport 故障保留本地记录等下次再试，
//     平台明确拒绝则删除记录，避免拿着死 Cookie 反复回源。
type SessionResolver struct {
	store       SessionStore
	platform    PlatformAPI
	permissions PermissionAPI
	cache       *sessioncache.Cache
	metrics     *metrics.LoginMetrics
	logger      log.Logger
	clock       func() time.Time
}

// NewSessionResolver 创建会话解析器。permissions 可为 nil（不做权限富化）。
func NewSessionResolver(
	store SessionStore,
	platform PlatformAPI,
	permissions PermissionAPI,
	cache *sessioncache.Cache,
	m *metrics.LoginMetrics,
	logger log.Logger,
) *SessionResolver {
	if m == nil {
		m = metrics.DefaultLoginMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &SessionResolver{
		store:       store,
		platform:    platform,
		permissions: permissions,
		cache:       cache,
		metrics:     m,
		logger:      logger.With("component", "session_resolver"),
		clock:       time.Now,
	}
}

// Resolve 解析 sessionID 对应的登录态。
func (r *SessionResolver) Resolve(ctx context.Context, sessionID string) domain.Session {
	now := r.clock()

	if sessionID == "" {
		r.metrics.IncResolveOutcome(outcomeNoSession)
		return domain.Unauthenticated(now)
	}

	record, err := r.store.Get(ctx, sessionID)
	if err != nil {
		if err != ErrSessionNotFound {
			// 存储故障同样收敛为未登录，但记成 transport 类
			r.logger.WarnContext(ctx, "读取会话记录失败", log.Any("error", err))
			r.metrics.IncResolveOutcome(outcomeTransportError)
			return domain.Unauthenticated(now)
		}
		r.metrics.IncResolveOutcome(outcomeNoSession)
		return domain.Unauthenticated(now)
	}

	user, appErr := r.platform.Profile(ctx, record.PlatformCookie)
	if appErr != nil {
		if client.IsTransportError(appErr) {
			// 平台不可达：保留本地记录，本次按未登录展示
			r.logger.WarnContext(ctx, "平台回源失败，保留会话记录",
				log.String("session_id", sessionID),
				log.Any("error", appErr))
			r.metrics.IncResolveOutcome(outcomeTransportError)
			return domain.Unauthenticated(now)
		}

		// 平台明确拒绝：本地记录已经没有意义
		r.logger.InfoContext(ctx, "平台判定会话无效，清除本地记录",
			log.String("session_id", sessionID),
			log.Int("api_code", appErr.Code.ToInt()))
		_ = r.store.Delete(ctx, sessionID)
		if r.cache != nil {
			r.cache.Delete(ctx, record.Provider, sessionID, "backend_denied")
		}
		r.metrics.IncResolveOutcome(outcomeBackendDenied)
		return domain.Unauthenticated(now)
	}

	if user == nil {
		// 成功信封但没有用户数据，按拒绝处理
		r.metrics.IncResolveOutcome(outcomeBackendDenied)
		_ = r.store.Delete(ctx, sessionID)
		return domain.Unauthenticated(now)
	}

	r.enrichPermissions(ctx, record.Provider, sessionID, user)

	if r.cache != nil {
		r.cache.Set(ctx, record.Provider, sessioncache.Session{
			SessionID:     sessionID,
			UserID:        user.UserID,
			Nickname:      user.Nickname,
			Email:         user.Email,
			WalletAddress: user.WalletAddress,
			CanPublish:    user.CanPublish,
		})
	}

	r.metrics.IncResolveOutcome(outcomeAuthenticated)
	return domain.Authenticated(user, now)
}

// enrichPermissions 查询 can_publish 并写入用户画像。
// 权限服务不可用时退回缓存里上一次解析得到的值；缓存也没有则保持 false。
// 登录态本身不受权限查询结果影响。
func (r *SessionResolver) enrichPermissions(ctx context.Context, provider, sessionID string, user *domain.UserInfo) {
	if r.permissions == nil || user.UserID == "" {
		return
	}
	allowed, err := r.permissions.CanPublish(ctx, user.UserID)
	if err != nil {
		if r.cache != nil {
			if cached, ok := r.cache.Get(ctx, provider, sessionID); ok && cached.UserID == user.UserID {
				user.CanPublish = cached.CanPublish
			}
		}
		r.logger.WarnContext(ctx, "权限服务查询失败，沿用缓存值",
			log.String("user_id", user.UserID),
			log.Any("error", err))
		return
	}
	user.CanPublish = allowed
}
