// File: internal/modules/auth/client/identity_client.go
package client

import (
	"context"
	"encoding/json"
	"net/http"

	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/xerrors"

	ory "github.com/ory/kratos-client-go"
)

// KratosClient 封装 Ory Kratos Public API 调用。
// 邮箱密码登录先在这里完成凭证校验，产出的身份信息再拿去平台兑换会话。
type KratosClient struct {
	publicURL    string
	publicClient *ory.APIClient
	logger       log.Logger
}

// IdentityResult 身份校验成功的产物。
type IdentityResult struct {
	IdentityID   string
	SessionToken string
	Email        string
	Nickname     string
}

// kratosErrorPayload Kratos 登录失败时返回的 JSON 结构，只关心需要翻译的字段。
type kratosErrorPayload struct {
	UI struct {
		Messages []struct {
			ID   int    `json:"id"`
			Text string `json:"text"`
		} `json:"messages"`
	} `json:"ui"`
}

// NewKratosClient 创建 Kratos 客户端
func NewKratosClient(publicURL string, logger log.Logger) *KratosClient {
	publicConfig := ory.NewConfiguration()
	publicConfig.Servers = []ory.ServerConfiguration{
		{URL: publicURL},
	}
	if logger == nil {
		logger = log.GetLogger()
	}

	return &KratosClient{
		publicURL:    publicURL,
		publicClient: ory.NewAPIClient(publicConfig),
		logger:       logger.With("component", "kratos_client"),
	}
}

// EmailLogin 执行邮箱密码的 Native 登录流程。
// 凭证错误翻译为统一的提供方错误分类，基础设施故障返回身份服务错误。
func (c *KratosClient) EmailLogin(ctx context.Context, identifier, password string) (*IdentityResult, *xerrors.AppError) {
	c.logger.InfoContext(ctx, "开始邮箱登录流程",
		log.String("identifier", identifier),
	)

	// 1. 创建登录流程
	flow, resp, err := c.publicClient.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, c.handleKratosError(ctx, "create_login_flow", err, resp)
	}

	c.logger.DebugContext(ctx, "创建登录流程成功",
		log.String("flow_id", flow.Id),
	)

	// 2. 提交登录信息
	submitReq := ory.UpdateLoginFlowBody{
		UpdateLoginFlowWithPasswordMethod: &ory.UpdateLoginFlowWithPasswordMethod{
			Method:     "password",
			Identifier: identifier,
			Password:   password,
		},
	}

	loginResult, resp, err := c.publicClient.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(submitReq).
		Execute()

	if err != nil {
		return nil, c.handleKratosError(ctx, "submit_login", err, resp)
	}

	// 3. 处理登录结果
	identity := loginResult.Session.Identity
	if identity == nil {
		return nil, xerrors.FromCode(xerrors.CodeIdentityProviderErr).
			WithService("kratos_client", "email_login").
			WithMetadata("unexpected_state", "no_identity_in_successful_login")
	}

	c.logger.InfoContext(ctx, "邮箱登录成功",
		log.String("identity_id", identity.Id),
	)

	sessionToken := ""
	if loginResult.SessionToken != nil {
		sessionToken = *loginResult.SessionToken
	}

	result := &IdentityResult{
		IdentityID:   identity.Id,
		SessionToken: sessionToken,
	}
	if traits, ok := identity.Traits.(map[string]interface{}); ok {
		if email, ok := traits["email"].(string); ok {
			result.Email = email
		}
		if username, ok := traits["username"].(string); ok {
			result.Nickname = username
		}
	}

	return result, nil
}

// Logout 作废 Kratos 会话令牌。
// 失败只记录，不阻断网关侧的登出清理。
func (c *KratosClient) Logout(ctx context.Context, sessionToken string) *xerrors.AppError {
	if sessionToken == "" {
		return nil
	}

	resp, err := c.publicClient.FrontendAPI.PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*ory.NewPerformNativeLogoutBody(sessionToken)).
		Execute()
	if err != nil {
		return c.handleKratosError(ctx, "native_logout", err, resp)
	}
	return nil
}

// handleKratosError 把 Kratos 调用错误翻译成业务错误。
// 400 响应里带 ui.messages 时按消息 ID 翻译，保证用户看到固定分类的文案。
func (c *KratosClient) handleKratosError(ctx context.Context, operation string, err error, resp *http.Response) *xerrors.AppError {
	c.logger.ErrorContext(ctx, "Kratos API 调用失败",
		log.String("operation", operation),
		log.Any("error", err),
	)

	if payload := parseKratosErrorBody(err); payload != nil && len(payload.UI.Messages) > 0 {
		msg := payload.UI.Messages[0]
		if msg.ID > 0 {
			return xerrors.TranslateIdentityError(msg.ID).
				WithService("kratos_client", operation)
		}
		return xerrors.TranslateIdentityErrorText(msg.Text).
			WithService("kratos_client", operation)
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			// 没有可翻译的消息时按凭证错误处理
			return xerrors.FromCode(xerrors.CodeProviderWrongCredential).
				WithService("kratos_client", operation).
				WithMetadata("kratos_status", resp.StatusCode)
		case http.StatusTooManyRequests:
			return xerrors.FromCode(xerrors.CodeProviderRateLimited).
				WithService("kratos_client", operation).
				WithMetadata("kratos_status", resp.StatusCode)
		}
	}

	return xerrors.NewIdentityProviderError(operation, err)
}

// parseKratosErrorBody 从 OpenAPI 错误中提取 Kratos 的 ui.messages。
func parseKratosErrorBody(err error) *kratosErrorPayload {
	genErr, ok := err.(*ory.GenericOpenAPIError)
	if !ok {
		return nil
	}

	var payload kratosErrorPayload
	if json.Unmarshal(genErr.Body(), &payload) != nil {
		return nil
	}
	return &payload
}
