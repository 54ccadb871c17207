// File: internal/modules/auth/client/platform_client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chainpulse-self/internal/modules/auth/domain"
	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/xerrors"
)

// PlatformClient 封装了与平台后端交互的所有逻辑。
// 平台后端持有用户数据，是登录态的唯一真值来源；
// 网关拿本地记录的平台 Cookie 回源校验，结果以平台的回答为准。
type PlatformClient struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// apiEnvelope 平台统一响应信封。api_code == 200 是唯一的成功判定依据。
type apiEnvelope[T any] struct {
	APICode int    `json:"api_code"`
	APIMsg  string `json:"api_msg"`
	Data    *T     `json:"data"`
}

// ExchangeResult 凭证兑换成功后的产物：平台会话 Cookie + 用户画像。
type ExchangeResult struct {
	PlatformCookie string
	User           *domain.UserInfo
}

// NewPlatformClient 是 PlatformClient 的构造函数。
func NewPlatformClient(baseURL string, timeout time.Duration, logger log.Logger) *PlatformClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &PlatformClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "platform_client"),
	}
}

// walletLoginRequest 钱包登录兑换请求体。
// 签名本身不上送：签名完成是前置门槛，平台只认地址和链 ID。
type walletLoginRequest struct {
	Address string `json:"address"`
	ChainID int64  `json:"chain_id"`
}

// socialLoginRequest 第三方/邮箱登录兑换请求体。
type socialLoginRequest struct {
	Provider    string `json:"provider"`
	ProviderUID string `json:"provider_uid"`
	IDToken     string `json:"id_token"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// ExchangeLogin 将已验证的登录凭证兑换为平台会话。
// 凭证类型决定端点与请求体；钱包凭证没有签名时直接拒绝，不发起任何请求。
func (pc *PlatformClient) ExchangeLogin(ctx context.Context, method domain.LoginMethod) (*ExchangeResult, *xerrors.AppError) {
	var (
		path string
		body any
	)

	switch m := method.(type) {
	case domain.WalletCredential:
		if m.Signature == "" {
			// 用户在钱包里取消了签名，兑换不允许发生
			return nil, xerrors.NewSignatureMissingError()
		}
		path = "/v1/wallet/login"
		body = walletLoginRequest{Address: m.Address, ChainID: m.ChainID}

	case domain.OAuthCredential:
		path = "/v1/social/login"
		body = socialLoginRequest{
			Provider:    m.Method(),
			ProviderUID: m.ProviderUID,
			IDToken:     m.IDToken,
			Email:       m.Email,
			DisplayName: m.DisplayName,
			PhotoURL:    m.PhotoURL,
		}

	case domain.EmailPasswordCredential:
		// 邮箱密码凭证必须先经身份服务换成 OAuthCredential 再兑换
		return nil, xerrors.New(xerrors.CodeInvalidParams, "邮箱凭证不能直接兑换")

	default:
		return nil, xerrors.New(xerrors.CodeInvalidParams, fmt.Sprintf("未知的登录方式: %T", method))
	}

	pc.logger.InfoContext(ctx, "开始兑换平台会话", log.String("provider", method.Method()))

	resp, appErr := pc.postJSON(ctx, path, body, "")
	if appErr != nil {
		return nil, appErr
	}
	defer resp.Body.Close()

	user, appErr := decodeEnvelope[domain.UserInfo](resp.Body)
	if appErr != nil {
		pc.logger.WarnContext(ctx, "平台拒绝了登录兑换",
			log.String("provider", method.Method()),
			log.Int("api_code", appErr.Code.ToInt()))
		return nil, appErr
	}

	// 成功信封必须携带用户数据，缺失时按平台响应异常处理
	if user == nil {
		return nil, xerrors.New(xerrors.CodeExternalServiceError, "平台兑换成功但未返回用户数据").AsTransport()
	}

	// 平台会话以 Set-Cookie 形式下发，是后续恢复登录态的凭据
	cookie := harvestSessionCookie(resp)
	if cookie == "" {
		return nil, xerrors.New(xerrors.CodeExternalServiceError, "平台未下发会话 Cookie").AsTransport()
	}

	return &ExchangeResult{PlatformCookie: cookie, User: user}, nil
}

// Profile 用平台 Cookie 回源查询当前用户。
// 传输失败返回 CodeExternalServiceError；平台明确拒绝时原样携带平台的 api_code。
func (pc *PlatformClient) Profile(ctx context.Context, platformCookie string) (*domain.UserInfo, *xerrors.AppError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.baseURL+"/v1/users/profile", nil)
	if err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeExternalServiceError, "构造平台请求失败", err).AsTransport()
	}
	req.Header.Set("Cookie", platformCookie)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.NewExternalServiceError("platform", err)
	}
	defer resp.Body.Close()

	return decodeEnvelope[domain.UserInfo](resp.Body)
}

// Logout 通知平台作废会话。
// 失败不会阻止网关本地清理，调用方只把结果用于记录。
func (pc *PlatformClient) Logout(ctx context.Context, platformCookie string) *xerrors.AppError {
	resp, appErr := pc.postJSON(ctx, "/v1/users/logout", struct{}{}, platformCookie)
	if appErr != nil {
		return appErr
	}
	defer resp.Body.Close()

	_, appErr = decodeEnvelope[struct{}](resp.Body)
	return appErr
}

func (pc *PlatformClient) postJSON(ctx context.Context, path string, body any, cookie string) (*http.Response, *xerrors.AppError) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeInternalError, "序列化平台请求失败", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeExternalServiceError, "构造平台请求失败", err).AsTransport()
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.NewExternalServiceError("platform", err)
	}
	return resp, nil
}

// decodeEnvelope 解析平台信封。
// 只认 api_code == 200：HTTP 状态码、data 是否非空都不是成功依据。
func decodeEnvelope[T any](r io.Reader) (*T, *xerrors.AppError) {
	var envelope apiEnvelope[T]
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, xerrors.NewWithError(xerrors.CodeExternalServiceError, "平台响应格式异常", err).AsTransport()
	}

	if envelope.APICode != xerrors.CodeSuccess.ToInt() {
		return nil, xerrors.FromBackend(envelope.APICode, envelope.APIMsg)
	}
	return envelope.Data, nil
}

// harvestSessionCookie 从平台响应中收割会话 Cookie。
// 只保留 name=value 对，属性（Path/HttpOnly 等）对回源请求无意义。
func harvestSessionCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name != "" && c.Value != "" {
			return c.Name + "=" + c.Value
		}
	}
	return ""
}

// IsTransportError 区分「平台不可达」与「平台明确拒绝」。
// 前者在会话恢复时保留本地记录以待重试，后者删除记录。
// 判断依据是传输层标记而不是错误码：平台在信封里返回 50002 也属于明确拒绝。
func IsTransportError(appErr *xerrors.AppError) bool {
	return appErr != nil && appErr.Transport
}

// Ping 探测平台可达性：拿到任何 HTTP 响应就算可达，业务码不参与判断。
func (pc *PlatformClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.baseURL+"/v1/users/profile", nil)
	if err != nil {
		return err
	}
	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
