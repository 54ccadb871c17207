package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainpulse-self/internal/modules/auth/client"
	"chainpulse-self/internal/modules/auth/domain"
	"chainpulse-self/internal/pkg/xerrors"
)

func loginForLogoutTest(t *testing.T, f *testAuthFixture) *LoginOutcome {
	t.Helper()
	user := walletUser()
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=good", User: user}
	f.platform.profileUsers["platform_session=good"] = user

	outcome, appErr := f.svc.WalletLogin(context.Background(), domain.WalletCredential{
		Address: testWalletAddress, ChainID: 1, Signature: "0xsigned",
	}, LoginMetadata{})
	require.Nil(t, appErr)
	return outcome
}

func TestLogoutClearsLocalState(t *testing.T) {
	f := newAuthFixture(t)
	outcome := loginForLogoutTest(t, f)

	f.svc.Logout(context.Background(), outcome.SessionID)

	assert.Equal(t, 1, f.platform.logoutCalls)
	_, err := f.store.Get(context.Background(), outcome.SessionID)
	assert.Equal(t, ErrSessionNotFound, err)

	session := f.resolver.Resolve(context.Background(), outcome.SessionID)
	assert.Equal(t, domain.StateUnauthenticated, session.State)
}

func TestLogoutWinsOverBackend500(t *testing.T) {
	f := newAuthFixture(t)
	outcome := loginForLogoutTest(t, f)

	// 平台登出返回 500：本地清理照常进行
	f.platform.logoutErr = xerrors.FromBackend(50001, "内部服务错误")
	f.svc.Logout(context.Background(), outcome.SessionID)

	_, err := f.store.Get(context.Background(), outcome.SessionID)
	assert.Equal(t, ErrSessionNotFound, err)

	session := f.resolver.Resolve(context.Background(), outcome.SessionID)
	assert.Equal(t, domain.StateUnauthenticated, session.State)
	assert.Nil(t, session.User)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	outcome := loginForLogoutTest(t, f)

	f.svc.Logout(context.Background(), outcome.SessionID)
	// 第二次登出没有记录可查，但依然安静完成
	f.svc.Logout(context.Background(), outcome.SessionID)

	// 平台登出只在有记录时调用一次
	assert.Equal(t, 1, f.platform.logoutCalls)
}

func TestLogoutRevokesIdentityToken(t *testing.T) {
	f := newAuthFixture(t)
	f.identity.result = &client.IdentityResult{
		IdentityID: "kratos-id-1", SessionToken: "kratos-token",
	}
	user := &domain.UserInfo{UserID: "u-2"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=email", User: user}
	f.platform.profileUsers["platform_session=email"] = user

	outcome, appErr := f.svc.EmailLogin(context.Background(), domain.EmailPasswordCredential{
		Identifier: "u@example.com", Password: "correct",
	}, LoginMetadata{})
	require.Nil(t, appErr)

	f.svc.Logout(context.Background(), outcome.SessionID)
	assert.Equal(t, 1, f.identity.logoutCalls)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	token, err := tokens.Issue("sess-1", "u-1")
	require.NoError(t, err)

	claims, appErr := tokens.Parse(token)
	require.Nil(t, appErr)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "u-1", claims.UserID)
}

func TestTokenParseRejectsGarbage(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)

	_, appErr := tokens.Parse("not-a-jwt")
	require.NotNil(t, appErr)
	assert.Equal(t, xerrors.CodeSessionExpired, appErr.Code)

	// 换了密钥签出来的令牌同样拒绝
	other := NewTokenManager("other-secret", time.Hour)
	token, err := other.Issue("sess-1", "u-1")
	require.NoError(t, err)
	_, appErr = tokens.Parse(token)
	require.NotNil(t, appErr)
}
