package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainpulse-self/internal/modules/auth/client"
	"chainpulse-self/internal/modules/auth/domain"
	"chainpulse-self/internal/modules/auth/service"
	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/metrics"
	"chainpulse-self/internal/pkg/response"
	"chainpulse-self/internal/pkg/validator"
	"chainpulse-self/internal/pkg/xerrors"
)

type stubPlatform struct {
	exchangeResult *client.ExchangeResult
	exchangeErr    *xerrors.AppError
	profileUsers   map[string]*domain.UserInfo
	logoutErr      *xerrors.AppError
	exchangeCalls  int
}

func (s *stubPlatform) ExchangeLogin(ctx context.Context, method domain.LoginMethod) (*client.ExchangeResult, *xerrors.AppError) {
	s.exchangeCalls++
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return s.exchangeResult, nil
}

func (s *stubPlatform) Profile(ctx context.Context, platformCookie string) (*domain.UserInfo, *xerrors.AppError) {
	if user, ok := s.profileUsers[platformCookie]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, xerrors.FromBackend(40102, "会话过期")
}

func (s *stubPlatform) Logout(ctx context.Context, platformCookie string) *xerrors.AppError {
	return s.logoutErr
}

type handlerFixture struct {
	e        *echo.Echo
	handler  *AuthHandler
	platform *stubPlatform
	tokens   *service.TokenManager
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	platform := &stubPlatform{profileUsers: make(map[string]*domain.UserInfo)}
	store := service.NewMemorySessionStore()

	reg := prometheus.NewRegistry()
	m := metrics.NewLoginMetricsWithRegistry("handler_test", reg)
	resolver := service.NewSessionResolver(store, platform, nil, nil, m, nil)
	tokens := service.NewTokenManager("handler-test-secret", time.Hour)
	authService := service.NewAuthService(store, platform, nil, resolver, tokens, nil, nil, m, nil)

	logger := log.NewLogger(slog.NewTextHandler(httptest.NewRecorder(), nil))
	respWriter := response.NewResponseHandler(logger, "test")
	h := NewAuthHandler(authService, resolver, tokens, respWriter, false)

	e := echo.New()
	e.Validator = validator.New()

	return &handlerFixture{e: e, handler: h, platform: platform, tokens: tokens}
}

func (f *handlerFixture) requestJSON(method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return rec, f.e.NewContext(req, rec)
}

type sessionEnvelope struct {
	APICode int    `json:"api_code"`
	APIMsg  string `json:"api_msg"`
	Data    *struct {
		State string           `json:"state"`
		User  *domain.UserInfo `json:"user"`
	} `json:"data"`
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionEnvelope {
	t.Helper()
	var envelope sessionEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

const handlerTestAddress = "0xAbC5aB6f8C3fDD867FD0e5E41b1A0E856FC95c85"

func TestGetSessionWithoutCookie(t *testing.T) {
	f := newHandlerFixture(t)
	rec, c := f.requestJSON(http.MethodGet, "/api/v1/auth/session", "")

	require.NoError(t, f.handler.GetSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeSession(t, rec)
	assert.Equal(t, 200, envelope.APICode)
	require.NotNil(t, envelope.Data)
	assert.Equal(t, "unauthenticated", envelope.Data.State)
	assert.Nil(t, envelope.Data.User)
}

func TestGetWalletMessageIsFixed(t *testing.T) {
	f := newHandlerFixture(t)
	rec, c := f.requestJSON(http.MethodGet, "/api/v1/auth/wallet/message", "")

	require.NoError(t, f.handler.GetWalletMessage(c))

	var envelope struct {
		APICode int `json:"api_code"`
		Data    struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 200, envelope.APICode)
	assert.Equal(t, domain.WalletSignMessage, envelope.Data.Message)
}

func TestWalletLoginSetsCookieAndReturnsSession(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.UserInfo{UserID: "u-1", WalletAddress: handlerTestAddress}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=good", User: user}
	f.platform.profileUsers["platform_session=good"] = user

	rec, c := f.requestJSON(http.MethodPost, "/api/v1/auth/wallet/login",
		`{"address":"`+handlerTestAddress+`","chain_id":1,"signature":"0xsigned"}`)

	require.NoError(t, f.handler.WalletLogin(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeSession(t, rec)
	assert.Equal(t, 200, envelope.APICode)
	assert.Equal(t, "authenticated", envelope.Data.State)
	require.NotNil(t, envelope.Data.User)
	assert.Equal(t, handlerTestAddress, envelope.Data.User.WalletAddress)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestWalletLoginWithoutSignatureReturns401(t *testing.T) {
	f := newHandlerFixture(t)

	rec, c := f.requestJSON(http.MethodPost, "/api/v1/auth/wallet/login",
		`{"address":"`+handlerTestAddress+`","chain_id":1,"signature":""}`)

	require.NoError(t, f.handler.WalletLogin(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	envelope := decodeSession(t, rec)
	assert.Equal(t, xerrors.CodeSignatureMissing.ToInt(), envelope.APICode)
	assert.Equal(t, 0, f.platform.exchangeCalls)
}

func TestSocialLoginRelaysProviderError(t *testing.T) {
	f := newHandlerFixture(t)

	rec, c := f.requestJSON(http.MethodPost, "/api/v1/auth/social/login",
		`{"provider":"google","error_code":"auth/popup-blocked"}`)

	require.NoError(t, f.handler.SocialLogin(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	envelope := decodeSession(t, rec)
	assert.Equal(t, xerrors.CodeProviderPopupBlocked.ToInt(), envelope.APICode)
	assert.NotEmpty(t, envelope.APIMsg)
	// 提供方失败绝不触发兑换
	assert.Equal(t, 0, f.platform.exchangeCalls)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.UserInfo{UserID: "u-1"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=good", User: user}
	f.platform.profileUsers["platform_session=good"] = user

	// 正常登录拿到 Cookie
	loginRec, loginCtx := f.requestJSON(http.MethodPost, "/api/v1/auth/wallet/login",
		`{"address":"`+handlerTestAddress+`","chain_id":1,"signature":"0xsigned"}`)
	require.NoError(t, f.handler.WalletLogin(loginCtx))
	sessionCookie := loginRec.Result().Cookies()[0]

	// 平台登出返回 500，登出接口仍返回成功并清掉 Cookie
	f.platform.logoutErr = xerrors.FromBackend(50001, "内部服务错误")
	rec, c := f.requestJSON(http.MethodPost, "/api/v1/auth/logout", "", sessionCookie)
	require.NoError(t, f.handler.Logout(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeSession(t, rec)
	assert.Equal(t, 200, envelope.APICode)
	assert.Equal(t, "unauthenticated", envelope.Data.State)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)

	// 登出后身份查询回到未登录
	rec2, c2 := f.requestJSON(http.MethodGet, "/api/v1/auth/session", "", sessionCookie)
	require.NoError(t, f.handler.GetSession(c2))
	envelope2 := decodeSession(t, rec2)
	assert.Equal(t, "unauthenticated", envelope2.Data.State)
}

func TestGetLoginHistoryRequiresLogin(t *testing.T) {
	f := newHandlerFixture(t)
	rec, c := f.requestJSON(http.MethodGet, "/api/v1/auth/history", "")

	require.NoError(t, f.handler.GetLoginHistory(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	envelope := decodeSession(t, rec)
	assert.Equal(t, xerrors.CodeSessionExpired.ToInt(), envelope.APICode)
}

func TestGetLoginHistoryAuthenticated(t *testing.T) {
	f := newHandlerFixture(t)
	user := &domain.UserInfo{UserID: "u-1"}
	f.platform.exchangeResult = &client.ExchangeResult{PlatformCookie: "platform_session=good", User: user}
	f.platform.profileUsers["platform_session=good"] = user

	loginRec, loginCtx := f.requestJSON(http.MethodPost, "/api/v1/auth/wallet/login",
		`{"address":"`+handlerTestAddress+`","chain_id":1,"signature":"0xsigned"}`)
	require.NoError(t, f.handler.WalletLogin(loginCtx))
	sessionCookie := loginRec.Result().Cookies()[0]

	rec, c := f.requestJSON(http.MethodGet, "/api/v1/auth/history?limit=5", "", sessionCookie)
	require.NoError(t, f.handler.GetLoginHistory(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 未配置历史库时返回空列表而不是错误
	var envelope struct {
		APICode int `json:"api_code"`
		Data    struct {
			Items []LoginHistoryItem `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 200, envelope.APICode)
	assert.Empty(t, envelope.Data.Items)
}

func TestGetSessionWithGarbageCookie(t *testing.T) {
	f := newHandlerFixture(t)
	rec, c := f.requestJSON(http.MethodGet, "/api/v1/auth/session", "",
		&http.Cookie{Name: SessionCookieName, Value: "garbage"})

	require.NoError(t, f.handler.GetSession(c))
	envelope := decodeSession(t, rec)
	assert.Equal(t, 200, envelope.APICode)
	assert.Equal(t, "unauthenticated", envelope.Data.State)
}
