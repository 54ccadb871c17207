// File: internal/modules/auth/handler/auth_handler.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"chainpulse-self/internal/modules/auth/domain"
	"chainpulse-self/internal/modules/auth/service"
	"chainpulse-self/internal/pkg/contextkeys"
	"chainpulse-self/internal/pkg/response"
	"chainpulse-self/internal/pkg/xerrors"
)

// SessionCookieName 网关会话 Cookie 名。
const SessionCookieName = "cp_session"

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService  *service.AuthService
	resolver     *service.SessionResolver
	tokens       *service.TokenManager
	respWriter   response.Writer
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService *service.AuthService,
	resolver *service.SessionResolver,
	tokens *service.TokenManager,
	respWriter response.Writer,
	cookieSecure bool,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		resolver:     resolver,
		tokens:       tokens,
		respWriter:   respWriter,
		cookieSecure: cookieSecure,
	}
}

// ==================== HTTP Request/Response Models ====================
// 这些是 HTTP API 专用的结构,用于前端交互

// WalletLoginRequest 钱包签名登录请求
type WalletLoginRequest struct {
	Address   string `json:"address" validate:"required,evm_address"`
	ChainID   int64  `json:"chain_id" validate:"required"`
	Signature string `json:"signature"`
}

// SocialLoginRequest 第三方 OAuth 登录请求
type SocialLoginRequest struct {
	Provider    string `json:"provider" validate:"required,oneof=google apple"`
	ProviderUID string `json:"provider_uid"`
	IDToken     string `json:"id_token"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	// ErrorCode 非空表示前端在提供方那一步就失败了，只需要翻译错误
	ErrorCode string `json:"error_code"`
}

// EmailLoginRequest 邮箱密码登录请求
type EmailLoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// SignMessageResponse 钱包签名文案响应
type SignMessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse 登录态响应
type SessionResponse struct {
	State string           `json:"state"`
	User  *domain.UserInfo `json:"user,omitempty"`
}

// LoginHistoryItem 单条登录历史
type LoginHistoryItem struct {
	Provider   string    `json:"provider"`
	Success    bool      `json:"success"`
	FailReason string    `json:"fail_reason,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LoginHistoryResponse 登录历史响应
type LoginHistoryResponse struct {
	Items []LoginHistoryItem `json:"items"`
}

// ==================== HTTP Handlers ====================

// GetSession 查询当前登录态
// @Summary 查询登录态
// @Description 解析网关 Cookie 并回源平台确认，返回确定的登录态
// @Tags 认证
// @Produce json
// @Success 200 {object} response.APIResponse[SessionResponse] "当前登录态"
// @Router /auth/session [get]
func (h *AuthHandler) GetSession(c echo.Context) error {
	session := h.resolver.Resolve(c.Request().Context(), h.sessionIDFromCookie(c))
	return response.EchoOK(c, h.respWriter, toSessionResponse(session))
}

// GetWalletMessage 获取钱包签名文案
// @Summary 获取签名文案
// @Description 返回固定的钱包登录签名文案
// @Tags 认证
// @Produce json
// @Success 200 {object} response.APIResponse[SignMessageResponse] "签名文案"
// @Router /auth/wallet/message [get]
func (h *AuthHandler) GetWalletMessage(c echo.Context) error {
	return response.EchoOK(c, h.respWriter, SignMessageResponse{Message: domain.WalletSignMessage})
}

// WalletLogin 钱包签名登录
// @Summary 钱包登录
// @Description 校验签名存在后向平台兑换会话；用户取消签名时不发起兑换
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body WalletLoginRequest true "钱包登录请求"
// @Success 200 {object} response.APIResponse[SessionResponse] "登录成功"
// @Failure 401 {object} response.APIResponse[response.EmptyData] "签名缺失或平台拒绝"
// @Router /auth/wallet/login [post]
func (h *AuthHandler) WalletLogin(c echo.Context) error {
	var req WalletLoginRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoValidationError(c, h.respWriter, err)
	}

	outcome, appErr := h.authService.WalletLogin(c.Request().Context(), domain.WalletCredential{
		Address:   req.Address,
		ChainID:   req.ChainID,
		Signature: req.Signature,
	}, h.loginMetadata(c))
	if appErr != nil {
		return response.EchoError(c, h.respWriter, appErr)
	}

	h.setSessionCookie(c, outcome.Token)
	return response.EchoOK(c, h.respWriter, toSessionResponse(outcome.Session))
}

// SocialLogin 第三方 OAuth 登录
// @Summary 第三方登录
// @Description 用提供方凭证兑换平台会话；error_code 非空时只翻译提供方错误
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SocialLoginRequest true "第三方登录请求"
// @Success 200 {object} response.APIResponse[SessionResponse] "登录成功"
// @Failure 401 {object} response.APIResponse[response.EmptyData] "提供方失败或平台拒绝"
// @Router /auth/social/login [post]
func (h *AuthHandler) SocialLogin(c echo.Context) error {
	var req SocialLoginRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoValidationError(c, h.respWriter, err)
	}

	ctx := c.Request().Context()

	// 提供方已经失败：只做错误翻译，不兑换
	if req.ErrorCode != "" {
		appErr := h.authService.ReportProviderFailure(ctx, req.Provider, req.ErrorCode, h.loginMetadata(c))
		return response.EchoError(c, h.respWriter, appErr)
	}

	outcome, appErr := h.authService.SocialLogin(ctx, domain.OAuthCredential{
		Provider:    req.Provider,
		ProviderUID: req.ProviderUID,
		IDToken:     req.IDToken,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}, h.loginMetadata(c))
	if appErr != nil {
		return response.EchoError(c, h.respWriter, appErr)
	}

	h.setSessionCookie(c, outcome.Token)
	return response.EchoOK(c, h.respWriter, toSessionResponse(outcome.Session))
}

// EmailLogin 邮箱密码登录
// @Summary 邮箱登录
// @Description 先经身份服务校验凭证，通过后兑换平台会话
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body EmailLoginRequest true "邮箱登录请求"
// @Success 200 {object} response.APIResponse[SessionResponse] "登录成功"
// @Failure 401 {object} response.APIResponse[response.EmptyData] "凭证错误"
// @Router /auth/email/login [post]
func (h *AuthHandler) EmailLogin(c echo.Context) error {
	var req EmailLoginRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}
	if err := c.Validate(&req); err != nil {
		return response.EchoValidationError(c, h.respWriter, err)
	}

	outcome, appErr := h.authService.EmailLogin(c.Request().Context(), domain.EmailPasswordCredential{
		Identifier: req.Identifier,
		Password:   req.Password,
	}, h.loginMetadata(c))
	if appErr != nil {
		return response.EchoError(c, h.respWriter, appErr)
	}

	h.setSessionCookie(c, outcome.Token)
	return response.EchoOK(c, h.respWriter, toSessionResponse(outcome.Session))
}

// Logout 登出
// @Summary 登出
// @Description 作废提供方与平台会话并清理本地状态；无论上游结果如何都返回成功
// @Tags 认证
// @Produce json
// @Success 200 {object} response.APIResponse[SessionResponse] "已登出"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.authService.Logout(c.Request().Context(), h.sessionIDFromCookie(c))

	h.expireSessionCookie(c)
	session := domain.Unauthenticated(time.Now())
	return response.EchoOK(c, h.respWriter, toSessionResponse(session))
}

// GetLoginHistory 查询当前用户的登录历史
// @Summary 登录历史
// @Description 返回当前登录用户最近的登录历史，未登录返回 401
// @Tags 认证
// @Produce json
// @Param limit query int false "返回条数，默认 20，上限 100"
// @Success 200 {object} response.APIResponse[LoginHistoryResponse] "登录历史"
// @Failure 401 {object} response.APIResponse[response.EmptyData] "未登录"
// @Router /auth/history [get]
func (h *AuthHandler) GetLoginHistory(c echo.Context) error {
	ctx := c.Request().Context()
	session := h.resolver.Resolve(ctx, h.sessionIDFromCookie(c))
	if !session.IsAuthenticated() {
		return response.EchoError(c, h.respWriter, xerrors.FromCode(xerrors.CodeSessionExpired))
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, appErr := h.authService.LoginHistory(ctx, session.User.UserID, limit)
	if appErr != nil {
		return response.EchoError(c, h.respWriter, appErr)
	}

	items := make([]LoginHistoryItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, LoginHistoryItem{
			Provider:   entry.Provider,
			Success:    entry.Success,
			FailReason: entry.FailReason,
			ClientIP:   entry.ClientIP,
			OccurredAt: entry.OccurredAt,
		})
	}
	return response.EchoOK(c, h.respWriter, LoginHistoryResponse{Items: items})
}

// ==================== helpers ====================

func toSessionResponse(session domain.Session) SessionResponse {
	return SessionResponse{
		State: string(session.State),
		User:  session.User,
	}
}

// sessionIDFromCookie 从网关 Cookie 解析 session_id；解析失败视为没有会话。
func (h *AuthHandler) sessionIDFromCookie(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	claims, appErr := h.tokens.Parse(cookie.Value)
	if appErr != nil {
		return ""
	}
	// 后续日志与历史记录用
	ctx := contextkeys.WithSessionID(c.Request().Context(), claims.SessionID)
	ctx = contextkeys.WithUserID(ctx, claims.UserID)
	c.SetRequest(c.Request().WithContext(ctx))
	return claims.SessionID
}

func (h *AuthHandler) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) expireSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) loginMetadata(c echo.Context) service.LoginMetadata {
	return service.LoginMetadata{
		ClientIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}
