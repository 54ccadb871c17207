// File: internal/pkg/i18n/error_messages.go
package i18n

import (
	"chainpulse-self/internal/pkg/xerrors"

	"golang.org/x/text/language"
)

// ErrorMessages 错误消息的多语言映射
var ErrorMessages = map[xerrors.ErrorCode]map[language.Tag]string{
	xerrors.CodeSuccess: {language.Chinese: "成功", language.English: "Success"},

	// 400xx: 请求类错误码
	xerrors.CodeInvalidParams:  {language.Chinese: "参数错误", language.English: "Invalid parameters"},
	xerrors.CodeInvalidRequest: {language.Chinese: "请求格式错误", language.English: "Invalid request format"},

	// 401xx: 认证相关错误码
	xerrors.CodeAuthenticationFailed: {language.Chinese: "认证失败", language.English: "Authentication failed"},
	xerrors.CodeSessionExpired:       {language.Chinese: "会话过期或不存在", language.English: "Session expired or missing"},
	xerrors.CodeInvalidCredentials:   {language.Chinese: "凭据无效", language.English: "Invalid credentials"},
	xerrors.CodeSignatureMissing:     {language.Chinese: "未完成钱包签名", language.English: "Wallet signature not provided"},
	xerrors.CodeInvalidWalletAddress: {language.Chinese: "钱包地址格式无效", language.English: "Invalid wallet address"},

	// 403xx / 404xx / 409xx / 429xx
	xerrors.CodePermissionDenied:  {language.Chinese: "权限不足", language.English: "Permission denied"},
	xerrors.CodeResourceNotFound:  {language.Chinese: "资源不存在", language.English: "Resource not found"},
	xerrors.CodeDuplicateResource: {language.Chinese: "资源已存在", language.English: "Resource already exists"},
	xerrors.CodeRateLimitExceeded: {language.Chinese: "请求频率限制", language.English: "Rate limit exceeded"},

	// 450xx: 身份提供方错误分类（固定文案，对用户可见）
	xerrors.CodeProviderUserNotFound:    {language.Chinese: "账号不存在", language.English: "Account not found"},
	xerrors.CodeProviderWrongCredential: {language.Chinese: "账号或密码错误", language.English: "Incorrect account or password"},
	xerrors.CodeProviderAlreadyInUse:    {language.Chinese: "该账号已被绑定", language.English: "Account already in use"},
	xerrors.CodeProviderWeakCredential:  {language.Chinese: "密码强度不足", language.English: "Password is too weak"},
	xerrors.CodeProviderDisabled:        {language.Chinese: "账号已被禁用", language.English: "Account has been disabled"},
	xerrors.CodeProviderRateLimited:     {language.Chinese: "操作过于频繁，请稍后再试", language.English: "Too many attempts, please try again later"},
	xerrors.CodeProviderCancelled:       {language.Chinese: "登录已取消", language.English: "Sign-in cancelled"},
	xerrors.CodeProviderPopupBlocked:    {language.Chinese: "浏览器拦截了登录弹窗", language.English: "Sign-in popup was blocked by the browser"},
	xerrors.CodeProviderInvalid:         {language.Chinese: "登录凭证无效", language.English: "Invalid sign-in credential"},
	xerrors.CodeProviderUnknown:         {language.Chinese: "登录失败，请稍后重试", language.English: "Sign-in failed, please try again"},

	// 500xx: 系统类错误码
	xerrors.CodeInternalError:        {language.Chinese: "内部服务错误", language.English: "Internal server error"},
	xerrors.CodeExternalServiceError: {language.Chinese: "外部服务错误", language.English: "External service error"},
	xerrors.CodeIdentityProviderErr:  {language.Chinese: "身份服务暂不可用", language.English: "Identity service unavailable"},
	xerrors.CodeDatabaseError:        {language.Chinese: "数据库错误", language.English: "Database error"},
	xerrors.CodeCacheError:           {language.Chinese: "缓存服务错误", language.English: "Cache service error"},
	xerrors.CodeMessageQueueError:    {language.Chinese: "消息队列错误", language.English: "Message queue error"},
}

// GetErrorMessage 获取错误码对应语言的消息
func GetErrorMessage(code xerrors.ErrorCode, lang language.Tag) string {
	if messages, ok := ErrorMessages[code]; ok {
		if msg, ok := messages[lang]; ok {
			return msg
		}
		// 如果指定语言没有翻译，返回中文（默认）
		if msg, ok := messages[language.Chinese]; ok {
			return msg
		}
	}
	// 如果完全没有定义，返回通用错误消息
	if lang == language.English {
		return "Unknown error"
	}
	return "未知错误"
}
