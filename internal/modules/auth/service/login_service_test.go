package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainpulse-self/internal/modules/auth/client"
	"chainpulse-self/internal/modules/auth/domain"
	"chainpulse-self/internal/pkg/metrics"
	"chainpulse-self/internal/pkg/xerrors"
)

type fakeIdentity struct {
	result      *client.IdentityResult
	loginErr    *xerrors.AppError
	logoutCalls int
}

func (f *fakeIdentity) EmailLogin(ctx context.Context, identifier, password string) (*client.IdentityResult, *xerrors.AppError) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result, nil
}

func (f *fakeIdentity) Logout(ctx context.Context, sessionToken string) *xerrors.AppError {
	f.logoutCalls++
	return nil
}

type fakeHistory struct {
	mu       sync.Mutex
	entries  []*LoginHistoryEntry
	queryErr error
}

func (f *fakeHistory) Record(ctx context.Context, entry *LoginHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistory) RecentFailures(ctx context.Context, identifier string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	var count int64
	for _, entry := range f.entries {
		if entry.UserID == identifier && !entry.Success && !entry.OccurredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeHistory) ListByUser(ctx context.Context, userID string, limit int) ([]*LoginHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var result []*LoginHistoryEntry
	for i := len(f.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if f.entries[i].UserID == userID {
			result = append(result, f.entries[i])
		}
	}
	return result, nil
}

func (f *fakeHistory) last() *LoginHistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

type testAuthFixture struct {
	svc      *AuthService
	store    *MemorySessionStore
	platform *fakePlatform
	identity *fakeIdentity
	history  *fakeHistory
	resolver *SessionResolver
}

func newAuthFixture(t *testing.T) *testAuthFixture {
	t.Helper()
	store := NewMemorySessionStore()
	platform := newFakePlatform()
	identity := &fakeIdentity{}
	history := &fakeHistory{}

	reg := prometheus.NewRegistry()
	m := metrics.NewLoginMetricsWithRegistry("auth_test", reg)
	resolver := NewSessionResolver(store, platform, nil, nil, m, nil)
	tokens := NewTokenManager("test-secret", time.Hour)
	svc := NewAuthService(store, platform, identity, resolver, tokens, nil, history, m, nil)

	return &testAuthFixture{
		svc: svc, store: store, platform: platform,
		identity: identity, history: history, resolver: resolver,
	}
}

func walletUser() *domain.UserInfo {
	return &domain.UserInfo{UserID: "u-1", Nickname: "satoshi", WalletAddress: "0xAbC5aB6f8C3fDD867FD0e5E41b1A0E856FC95c85"}
}

const testWalletAddress = "0xAbC5aB6f8C3fDD867FD0e5E41b1A0E856FC95c85"

func TestWalletLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	f.platform.exchangeResult = &client.ExchangeResult{
		PlatformCookie: "platform_session=good",
		User:           walletUser(),
	}
	f.platform.profileUsers["platform_session=good"] = walletUser()

	outcome, appErr := f.svc.WalletLogin(context.Background(), domain.WalletCredential{
		Address: testWalletAddress, ChainID: 1, Signature: "0xsigned",
	}, LoginMetadata{ClientIP: "10.0.0.1"})
	require.Nil(t, appErr)

	assert.NotEmpty(t, outcome.SessionID)
	assert.NotEmpty(t, outcome.Token)
	require.True(t, outcome.Session.IsAuthenticated())
	assert.Equal(t, testWalletAddress, outcome.Session.User.WalletAddress)

	// 登录结果与随后的 Resolve 一致：Resolve 是登录态的真值
	resolved := f.resolver.Resolve(context.Background(), outcome.SessionID)
	require.True(t, resolved.IsAuthenticated())
	assert.Equal(t, outcome.Session.User.UserID, resolved.User.UserID)

	// 成功历史落库
	entry := f.history.last()
	require.NotNil(t, entry)
	assert.True(t, entry.Success)
	assert.Equal(t, "wallet", entry.Provider)
}

func TestWalletLoginWithoutSignatureDoesNotExchange(t *testing.T) {
	f := newAuthFixture(t)

	_, appErr := f.svc.WalletLogin(context.Background(), domain.WalletCredential{
		Address: testWalletAddress, ChainID: 1,
	}, LoginMetadata{})
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.CodeSignatureMissing, appErr.Code)

	// 没有签名就绝不发起兑换
	assert.Equal(t, 0, f.platform.exchangeCalls)
	assert.Equal(t, 0, f.store.Len())
}

func TestWalletLoginRejectsBadAddress(t *testing.T) {
	f := newAuthFixture(t)

	_, appErr := f.svc.WalletLogin(context.Background(), domain.WalletCredential{
		Address: "not-an-address", ChainID: 1, Signature: "0xsigned",
	}, LoginMetadata{})
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.CodeInvalidWalletAddress, appErr.Code)
	assert.Equal(t, 0, f.platform.exchangeCalls)
}

func TestProviderFailureReportNeverExchanges(t *testing.T) {
	f := newAuthFixture(t)

	appErr := f.svc.ReportProviderFailure(context.Background(), "google", "auth/wrong-password", LoginMetadata{})
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.CodeProviderWrongCredential, appErr.Code)

	// 提供方失败只翻译与审计，不触发兑换
	assert.Equal(t, 0, f.platform.exchangeCalls)
	entry := f.history.last()
	require.NotNil(t, entry)
	assert.False(t, entry.Success)
}

func TestCancelledPopupIsNotAFailure(t *testing.T) {
	f := newAuthFixture(t)

	appErr := f.svc.ReportProviderFailure(context.Background(), "google", "auth/popup-closed-by-user", LoginMetadata{})
	require.NotNil(t, appErr)
	assert.True(t, xerrors.IsCancelledByUser(appErr))

	// 取消不兑换、不落失败历史
	assert.Equal(t, 0, f.platform.exchangeCalls)
	assert.Nil(t, f.history.last())
}

func TestUnknownProviderCodeFallsBackToGeneric(t *testing.T) {
	f := newAuthFixture(t)

	appErr := f.svc.ReportProviderFailure(context.Background(), "google", "auth/brand-new-code", LoginMetadata{})
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.CodeProviderUnknown, appErr.Code)
	assert.NotEmpty(t, appErr.Message)
}

func TestEmailLoginCredentialRejectedNoExchange(t *testing.T) {
	f := newAuthFixture(t)
	f.identity.loginErr = xerrors.FromCode(xerrors.CodeProviderWrongCredential)

	_, appErr := f.svc.EmailLogin(context.Background(), domain.EmailPasswordCredential{
		Identifier: "u@example.com", Password: "wrong",
	}, LoginMetadata{})
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.CodeProviderWrongCredential, appErr.Code)

	// 凭证校验失败时兑换不允许发生
	assert.Equal(t, 0, f.platform.exchangeCalls)
}

func TestEmailLoginSuccessExchangesExactlyOnce(t *testing.T) {
	f := newAuthFixture(t)
	f.identity.result = &client.IdentityResult{
		IdentityID: "kratos-id-1", SessionToken: "kratos-token", Email: "u@example.com",
	}
	user := &domain.UserInfo{UserID: "u-2", Email: "u@example.com"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=email", User: user}
	f.platform.profileUsers["platform_session=email"] = user

	outcome, appErr := f.svc.EmailLogin(context.Background(), domain.EmailPasswordCredential{
		Identifier: "u@example.com", Password: "correct",
	}, LoginMetadata{})
	require.Nil(t, appErr)
	assert.Equal(t, 1, f.platform.exchangeCalls)
	require.True(t, outcome.Session.IsAuthenticated())

	// Kratos 令牌要存进记录，登出时作废
	record, err := f.store.Get(context.Background(), outcome.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "kratos-token", record.ProviderToken)
}

func TestLastLoginWins(t *testing.T) {
	f := newAuthFixture(t)
	userA := &domain.UserInfo{UserID: "u-a"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=a", User: userA}
	f.platform.profileUsers["platform_session=a"] = userA

	first, appErr := f.svc.SocialLogin(context.Background(), domain.OAuthCredential{
		Provider: "google", ProviderUID: "uid-a", IDToken: "token-a",
	}, LoginMetadata{})
	require.Nil(t, appErr)

	userB := &domain.UserInfo{UserID: "u-b"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=b", User: userB}
	f.platform.profileUsers["platform_session=b"] = userB

	second, appErr := f.svc.SocialLogin(context.Background(), domain.OAuthCredential{
		Provider: "google", ProviderUID: "uid-b", IDToken: "token-b",
	}, LoginMetadata{})
	require.Nil(t, appErr)

	// 后一次登录产生的会话是最终生效的登录态
	resolved := f.resolver.Resolve(context.Background(), second.SessionID)
	require.True(t, resolved.IsAuthenticated())
	assert.Equal(t, "u-b", resolved.User.UserID)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestExchangeFailureRecordsHistory(t *testing.T) {
	f := newAuthFixture(t)
	f.platform.exchangeErr = xerrors.FromBackend(40103, "wallet not registered")

	_, appErr := f.svc.WalletLogin(context.Background(), domain.WalletCredential{
		Address: testWalletAddress, ChainID: 1, Signature: "0xsigned",
	}, LoginMetadata{})
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.ErrorCode(40103), appErr.Code)

	entry := f.history.last()
	require.NotNil(t, entry)
	assert.False(t, entry.Success)
	assert.Equal(t, 0, f.store.Len())
}

func TestEmailLoginFailureRecordsIdentifier(t *testing.T) {
	f := newAuthFixture(t)
	f.identity.loginErr = xerrors.FromCode(xerrors.CodeProviderWrongCredential)

	_, appErr := f.svc.EmailLogin(context.Background(), domain.EmailPasswordCredential{
		Identifier: "u@example.com", Password: "wrong",
	}, LoginMetadata{})
	require.NotNil(t, appErr)

	// 失败历史按邮箱落库，供后续防爆破统计
	entry := f.history.last()
	require.NotNil(t, entry)
	assert.Equal(t, "u@example.com", entry.UserID)
	assert.False(t, entry.Success)
}

func TestEmailLoginBruteForceGuard(t *testing.T) {
	f := newAuthFixture(t)
	f.identity.loginErr = xerrors.FromCode(xerrors.CodeProviderWrongCredential)

	cred := domain.EmailPasswordCredential{Identifier: "u@example.com", Password: "wrong"}
	for i := 0; i < bruteForceMaxFails; i++ {
		_, appErr := f.svc.EmailLogin(context.Background(), cred, LoginMetadata{})
		require.NotNil(t, appErr)
		assert.Equal(t, xerrors.CodeProviderWrongCredential, appErr.Code)
	}

	// 窗口内第六次尝试被频率限制拦下，连身份服务都不再调用
	_, appErr := f.svc.EmailLogin(context.Background(), cred, LoginMetadata{})
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.CodeRateLimitExceeded, appErr.Code)

	// 其他邮箱不受影响
	f.identity.loginErr = nil
	f.identity.result = &client.IdentityResult{IdentityID: "id-2", SessionToken: "tok", Email: "other@example.com"}
	user := &domain.UserInfo{UserID: "u-3", Email: "other@example.com"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=other", User: user}
	f.platform.profileUsers["platform_session=other"] = user

	outcome, appErr := f.svc.EmailLogin(context.Background(), domain.EmailPasswordCredential{
		Identifier: "other@example.com", Password: "correct",
	}, LoginMetadata{})
	require.Nil(t, appErr)
	assert.True(t, outcome.Session.IsAuthenticated())
}

func TestBruteForceGuardFailsOpen(t *testing.T) {
	f := newAuthFixture(t)
	f.history.queryErr = assert.AnError
	f.identity.result = &client.IdentityResult{IdentityID: "id-1", SessionToken: "tok", Email: "u@example.com"}
	user := &domain.UserInfo{UserID: "u-1", Email: "u@example.com"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=ok", User: user}
	f.platform.profileUsers["platform_session=ok"] = user

	// 历史库不可用时防爆破检查放行，不挡正常登录
	outcome, appErr := f.svc.EmailLogin(context.Background(), domain.EmailPasswordCredential{
		Identifier: "u@example.com", Password: "correct",
	}, LoginMetadata{})
	require.Nil(t, appErr)
	assert.True(t, outcome.Session.IsAuthenticated())
}

func TestLoginHistoryListsRecentFirst(t *testing.T) {
	f := newAuthFixture(t)
	user := walletUser()
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=good", User: user}
	f.platform.profileUsers["platform_session=good"] = user

	_, appErr := f.svc.WalletLogin(context.Background(), domain.WalletCredential{
		Address: testWalletAddress, ChainID: 1, Signature: "0xsigned",
	}, LoginMetadata{ClientIP: "10.0.0.1"})
	require.Nil(t, appErr)

	entries, appErr := f.svc.LoginHistory(context.Background(), user.UserID, 10)
	require.Nil(t, appErr)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, "wallet", entries[0].Provider)
	assert.Equal(t, "10.0.0.1", entries[0].ClientIP)
}

func TestLoginHistoryWithoutStoreReturnsEmpty(t *testing.T) {
	store := NewMemorySessionStore()
	platform := newFakePlatform()
	reg := prometheus.NewRegistry()
	m := metrics.NewLoginMetricsWithRegistry("auth_nohistory_test", reg)
	resolver := NewSessionResolver(store, platform, nil, nil, m, nil)
	tokens := NewTokenManager("test-secret", time.Hour)
	svc := NewAuthService(store, platform, nil, resolver, tokens, nil, nil, m, nil)

	entries, appErr := svc.LoginHistory(context.Background(), "u-1", 10)
	require.Nil(t, appErr)
	assert.Empty(t, entries)
}
