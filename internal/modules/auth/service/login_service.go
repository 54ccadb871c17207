// File: internal/modules/auth/service/login_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chainpulse-self/internal/modules/auth/domain"
	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/metrics"
	"chainpulse-self/internal/pkg/notify"
	"chainpulse-self/internal/pkg/sessioncache"
	"chainpulse-self/internal/pkg/validator"
	"chainpulse-self/internal/pkg/xerrors"
)

// LoginHistoryRecorder 登录历史落库接口，由 repository 实现。
// 落库失败只记日志，不影响登录结果。
type LoginHistoryRecorder interface {
	Record(ctx context.Context, entry *LoginHistoryEntry) error
	// RecentFailures 统计某标识（邮箱或用户 ID）自 since 以来的失败次数。
	RecentFailures(ctx context.Context, identifier string, since time.Time) (int64, error)
	// ListByUser 按时间倒序返回某用户最近的登录历史。
	ListByUser(ctx context.Context, userID string, limit int) ([]*LoginHistoryEntry, error)
}

// 邮箱登录的防爆破阈值：窗口内失败达到上限后暂时拒绝该标识。
const (
	bruteForceWindow   = 15 * time.Minute
	bruteForceMaxFails = 5
)

// LoginHistoryEntry 一次登录尝试的审计记录。
type LoginHistoryEntry struct {
	UserID     string
	Provider   string
	Success    bool
	FailReason string
	ClientIP   string
	UserAgent  string
	OccurredAt time.Time
}

// LoginMetadata 请求侧的附加信息。
type LoginMetadata struct {
	ClientIP  string
	UserAgent string
}

// LoginOutcome 登录成功的产物：网关令牌 + 回源确认过的登录态。
type LoginOutcome struct {
	SessionID string
	Token     string
	Session   domain.Session
}

// AuthService 登录与登出的编排层。
// 所有登录方式共用同一条主干：凭证校验 → 平台兑换 → 落记录 → 签发令牌 → 回源确认。
type AuthService struct {
	store      SessionStore
	platform   PlatformAPI
	identity   IdentityAPI
	resolver   *SessionResolver
	tokens     *TokenManager
	cache      *sessioncache.Cache
	history    LoginHistoryRecorder
	metrics    *metrics.LoginMetrics
	logger     log.Logger
	sessionTTL time.Duration
	clock      func() time.Time
}

// NewAuthService 创建认证服务。identity、cache、history 均可为 nil。
func NewAuthService(
	store SessionStore,
	platform PlatformAPI,
	identity IdentityAPI,
	resolver *SessionResolver,
	tokens *TokenManager,
	cache *sessioncache.Cache,
	history LoginHistoryRecorder,
	m *metrics.LoginMetrics,
	logger log.Logger,
) *AuthService {
	if m == nil {
		m = metrics.DefaultLoginMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &AuthService{
		store:      store,
		platform:   platform,
		identity:   identity,
		resolver:   resolver,
		tokens:     tokens,
		cache:      cache,
		history:    history,
		metrics:    m,
		logger:     logger.With("component", "auth_service"),
		sessionTTL: tokens.TTL(),
		clock:      time.Now,
	}
}

// WalletLogin 钱包签名登录。
// 顺序不可乱：先验地址、再验签名存在、然后才允许兑换。
func (s *AuthService) WalletLogin(ctx context.Context, cred domain.WalletCredential, meta LoginMetadata) (*LoginOutcome, *xerrors.AppError) {
	if !validator.IsEVMAddress(cred.Address) {
		return nil, xerrors.FromCode(xerrors.CodeInvalidWalletAddress).
			WithMetadata("address", cred.Address)
	}
	if cred.Signature == "" {
		// 用户在钱包中取消了签名：不兑换、不落成功历史
		s.recordHistory(ctx, "", cred.Method(), false, "signature_missing", meta)
		return nil, xerrors.NewSignatureMissingError()
	}

	return s.loginWith(ctx, cred, "", meta)
}

// SocialLogin 第三方 OAuth 登录（Google / Apple）。
// 前端已持有提供方凭证，这里直接兑换。
func (s *AuthService) SocialLogin(ctx context.Context, cred domain.OAuthCredential, meta LoginMetadata) (*LoginOutcome, *xerrors.AppError) {
	if cred.ProviderUID == "" || cred.IDToken == "" {
		return nil, xerrors.FromCode(xerrors.CodeInvalidParams).
			WithMetadata("provider", cred.Method())
	}
	return s.loginWith(ctx, cred, "", meta)
}

// ReportProviderFailure 前端上报的提供方登录失败。
// 只做错误翻译与审计，绝不触发兑换；用户主动取消不落失败历史。
func (s *AuthService) ReportProviderFailure(ctx context.Context, provider, providerCode string, meta LoginMetadata) *xerrors.AppError {
	appErr := xerrors.TranslateProviderError(providerCode)

	if xerrors.IsCancelledByUser(appErr) {
		s.logger.InfoContext(ctx, "用户取消了提供方登录",
			log.String("provider", provider))
		return appErr
	}

	s.recordHistory(ctx, "", provider, false, providerCode, meta)
	s.metrics.ObserveDuration(provider, "provider_failure", 0)
	return appErr
}

// EmailLogin 邮箱密码登录。
// 先经身份服务校验凭证，再把身份令牌当作 OAuth 凭证去平台兑换。
func (s *AuthService) EmailLogin(ctx context.Context, cred domain.EmailPasswordCredential, meta LoginMetadata) (*LoginOutcome, *xerrors.AppError) {
	if s.identity == nil {
		return nil, xerrors.New(xerrors.CodeIdentityProviderErr, "身份服务未配置")
	}
	if cred.Identifier == "" || cred.Password == "" {
		return nil, xerrors.FromCode(xerrors.CodeInvalidParams)
	}
	if appErr := s.checkBruteForce(ctx, cred.Identifier); appErr != nil {
		return nil, appErr
	}

	identity, appErr := s.identity.EmailLogin(ctx, cred.Identifier, cred.Password)
	if appErr != nil {
		// 凭证校验失败不允许兑换；失败历史按邮箱落库，供防爆破统计
		s.recordHistory(ctx, cred.Identifier, cred.Method(), false, appErr.Code.String(), meta)
		s.metrics.ObserveDuration(cred.Method(), "credential_rejected", 0)
		return nil, appErr
	}

	oauthCred := domain.OAuthCredential{
		Provider:    domain.MethodEmail,
		ProviderUID: identity.IdentityID,
		IDToken:     identity.SessionToken,
		Email:       identity.Email,
		DisplayName: identity.Nickname,
	}
	return s.loginWith(ctx, oauthCred, identity.SessionToken, meta)
}

// loginWith 登录主干：兑换 → 建会话记录 → 签发令牌 → 回源确认 → 广播。
// 同一浏览器并发登录时后写入的记录覆盖先写入的，登录态以最后一次兑换为准。
func (s *AuthService) loginWith(ctx context.Context, method domain.LoginMethod, providerToken string, meta LoginMetadata) (*LoginOutcome, *xerrors.AppError) {
	start := s.clock()
	provider := method.Method()

	result, appErr := s.platform.ExchangeLogin(ctx, method)
	if appErr != nil {
		s.recordHistory(ctx, "", provider, false, appErr.Code.String(), meta)
		s.metrics.ObserveDuration(provider, "exchange_failed", s.clock().Sub(start))
		return nil, appErr
	}

	now := s.clock()
	sessionID := uuid.NewString()
	record := &SessionRecord{
		SessionID:      sessionID,
		UserID:         result.User.UserID,
		Provider:       provider,
		PlatformCookie: result.PlatformCookie,
		ProviderToken:  providerToken,
		CreatedAt:      now,
		LastSeenAt:     now,
		ClientIP:       meta.ClientIP,
		UserAgent:      meta.UserAgent,
	}
	if err := s.store.Save(ctx, record, s.sessionTTL); err != nil {
		s.metrics.ObserveDuration(provider, "store_failed", s.clock().Sub(start))
		return nil, xerrors.Wrap(err, xerrors.CodeCacheError, "保存会话记录失败")
	}

	token, err := s.tokens.Issue(sessionID, result.User.UserID)
	if err != nil {
		_ = s.store.Delete(ctx, sessionID)
		s.metrics.ObserveDuration(provider, "token_failed", s.clock().Sub(start))
		return nil, xerrors.NewWithError(xerrors.CodeInternalError, "签发会话令牌失败", err)
	}

	// 登录态的真值以兑换后的一次 Resolve 为准，而不是兑换响应本身
	session := s.resolver.Resolve(ctx, sessionID)

	s.recordHistory(ctx, result.User.UserID, provider, true, "", meta)
	s.metrics.ObserveDuration(provider, "success", s.clock().Sub(start))

	if err := notify.PublishAuthEvent(ctx, notify.SubjectAuthLogin, notify.AuthEvent{
		UserID:    result.User.UserID,
		SessionID: sessionID,
		Provider:  provider,
		ClientIP:  meta.ClientIP,
	}); err != nil {
		s.logger.WarnContext(ctx, "发布登录事件失败", log.Any("error", err))
	}

	s.logger.InfoContext(ctx, "登录成功",
		log.String("provider", provider),
		log.String("user_id", result.User.UserID),
		log.String("session_id", sessionID))

	return &LoginOutcome{
		SessionID: sessionID,
		Token:     token,
		Session:   session,
	}, nil
}

// checkBruteForce 检查某标识近期的失败次数是否触顶。
// 历史库不可用时放行：防爆破是加固手段，不能反过来挡住正常登录。
func (s *AuthService) checkBruteForce(ctx context.Context, identifier string) *xerrors.AppError {
	if s.history == nil {
		return nil
	}
	since := s.clock().Add(-bruteForceWindow)
	failures, err := s.history.RecentFailures(ctx, identifier, since)
	if err != nil {
		s.logger.WarnContext(ctx, "查询登录失败次数失败",
			log.Any("error", err))
		return nil
	}
	if failures >= bruteForceMaxFails {
		s.logger.WarnContext(ctx, "登录尝试触发频率限制",
			log.String("identifier", identifier),
			log.Int("recent_failures", int(failures)))
		return xerrors.FromCode(xerrors.CodeRateLimitExceeded)
	}
	return nil
}

// LoginHistory 返回某用户最近的登录历史，按时间倒序。
func (s *AuthService) LoginHistory(ctx context.Context, userID string, limit int) ([]*LoginHistoryEntry, *xerrors.AppError) {
	if s.history == nil {
		return []*LoginHistoryEntry{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, err := s.history.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询登录历史失败")
	}
	return entries, nil
}

// recordHistory 落登录历史，失败只记日志。
func (s *AuthService) recordHistory(ctx context.Context, userID, provider string, success bool, failReason string, meta LoginMetadata) {
	if s.history == nil {
		return
	}
	entry := &LoginHistoryEntry{
		UserID:     userID,
		Provider:   provider,
		Success:    success,
		FailReason: failReason,
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		OccurredAt: s.clock(),
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "登录历史落库失败",
			log.String("provider", provider),
			log.Any("error", err))
	}
}
