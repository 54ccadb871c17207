// File: internal/modules/auth/domain/credential.go
package domain

// 登录方式标签，也是指标里的 provider 取值。
const (
	MethodWallet = "wallet"
	MethodGoogle = "google"
	MethodApple  = "apple"
	MethodEmail  = "email"
)

// WalletSignMessage 钱包登录的固定签名文案。
// 改动该文案会导致历史签名校验失败，视为协议变更。
const WalletSignMessage = "Welcome to ChainPulse! Sign this message to verify your wallet. This request will not trigger a blockchain transaction or cost any gas fees."

// LoginMethod 是登录凭证的 tagged union。
// 具体类型决定了兑换请求走哪个平台端点、携带什么字段。
type LoginMethod interface {
	Method() string
}

// WalletCredential 钱包签名登录。
// Signature 由前端钱包对 WalletSignMessage 签名产生；
// 签名缺失（用户在钱包中取消）时不允许发起兑换。
type WalletCredential struct {
	Address   string
	ChainID   int64
	Signature string
}

func (WalletCredential) Method() string { return MethodWallet }

// OAuthCredential 第三方 OAuth 登录（Google / Apple）。
type OAuthCredential struct {
	Provider    string // google / apple
	ProviderUID string
	IDToken     string
	Email       string
	DisplayName string
	PhotoURL    string
}

func (c OAuthCredential) Method() string {
	if c.Provider != "" {
		return c.Provider
	}
	return MethodGoogle
}

// EmailPasswordCredential 邮箱密码登录，先经身份服务校验再兑换。
type EmailPasswordCredential struct {
	Identifier string
	Password   string
}

func (EmailPasswordCredential) Method() string { return MethodEmail }
