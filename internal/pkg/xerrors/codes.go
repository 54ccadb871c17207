// File: internal/pkg/xerrors/codes.go
package xerrors

import "fmt"

// ErrorCode 错误码类型（类型安全）
// 错误码空间与平台 API 的 api_code 对齐：200 表示成功，
// 其余按 HTTP 语义分段的五位业务码表示失败。
type ErrorCode int

// IsValid 检查错误码是否在预定义列表中
func (c ErrorCode) IsValid() bool {
	_, exists := codeMessages[c]
	return exists
}

// String 返回错误码的字符串表示
func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return fmt.Sprintf("%d (%s)", c, msg)
	}
	return fmt.Sprintf("%d (未定义的错误码)", c)
}

// Message 返回错误码对应的消息
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "未知错误"
}

// ToInt 转换为 int（用于 JSON 序列化等场景）
func (c ErrorCode) ToInt() int {
	return int(c)
}

// -----------------------------------------------------------------------------
// 业务错误码统一定义
// api_code == 200 是全链路唯一的成功判定；失败码按领域分段，便于管理。
// -----------------------------------------------------------------------------
const (
	// 成功
	CodeSuccess ErrorCode = 200

	// 400xx: 请求格式/参数
	CodeInvalidParams  ErrorCode = 40001 // 参数错误
	CodeInvalidRequest ErrorCode = 40002 // 请求格式错误

	// 401xx: 认证与会话
	CodeAuthenticationFailed ErrorCode = 40101 // 认证失败
	CodeSessionExpired       ErrorCode = 40102 // 会话过期或不存在
	CodeInvalidCredentials   ErrorCode = 40103 // 凭据无效
	CodeSignatureMissing     ErrorCode = 40104 // 钱包签名缺失（用户拒绝签名）
	CodeInvalidWalletAddress ErrorCode = 40105 // 钱包地址格式无效

	// 403xx / 404xx / 409xx / 429xx
	CodePermissionDenied  ErrorCode = 40301 // 权限不足
	CodeResourceNotFound  ErrorCode = 40401 // 资源不存在
	CodeDuplicateResource ErrorCode = 40901 // 资源已存在
	CodeRateLimitExceeded ErrorCode = 42901 // 请求频率限制

	// 450xx: 身份提供方错误（固定错误分类，对应前端可展示的文案）
	CodeProviderUserNotFound    ErrorCode = 45001 // 账号不存在
	CodeProviderWrongCredential ErrorCode = 45002 // 密码或凭证错误
	CodeProviderAlreadyInUse    ErrorCode = 45003 // 账号已被占用
	CodeProviderWeakCredential  ErrorCode = 45004 // 凭证强度不足
	CodeProviderDisabled        ErrorCode = 45005 // 账号被禁用
	CodeProviderRateLimited     ErrorCode = 45006 // 提供方限流
	CodeProviderCancelled       ErrorCode = 45007 // 用户取消登录
	CodeProviderPopupBlocked    ErrorCode = 45008 // 浏览器拦截弹窗
	CodeProviderInvalid         ErrorCode = 45009 // 提供方凭证无效
	CodeProviderUnknown         ErrorCode = 45099 // 提供方未知错误

	// 500xx: 内部与外部依赖
	CodeInternalError        ErrorCode = 50001 // 内部服务错误
	CodeExternalServiceError ErrorCode = 50002 // 外部服务错误（含平台 API 不可达）
	CodeIdentityProviderErr  ErrorCode = 50003 // 身份提供方服务错误
	CodeDatabaseError        ErrorCode = 50004 // 数据库错误
	CodeCacheError           ErrorCode = 50005 // 缓存服务错误
	CodeMessageQueueError    ErrorCode = 50006 // 消息队列错误
)

// codeMessages 错误码默认消息（中文基准文案，多语言见 i18n 包）
var codeMessages = map[ErrorCode]string{
	CodeSuccess: "操作成功",

	CodeInvalidParams:  "参数错误",
	CodeInvalidRequest: "请求格式错误",

	CodeAuthenticationFailed: "认证失败",
	CodeSessionExpired:       "会话已过期，请重新登录",
	CodeInvalidCredentials:   "凭据无效",
	CodeSignatureMissing:     "未获取到钱包签名，请在钱包中确认签名",
	CodeInvalidWalletAddress: "钱包地址格式无效",

	CodePermissionDenied:  "权限不足",
	CodeResourceNotFound:  "资源不存在",
	CodeDuplicateResource: "资源已存在",
	CodeRateLimitExceeded: "请求过于频繁，请稍后重试",

	CodeProviderUserNotFound:    "账号不存在",
	CodeProviderWrongCredential: "账号或密码不正确",
	CodeProviderAlreadyInUse:    "该账号已被其他用户绑定",
	CodeProviderWeakCredential:  "密码强度不足，请设置更复杂的密码",
	CodeProviderDisabled:        "该账号已被禁用",
	CodeProviderRateLimited:     "尝试次数过多，请稍后重试",
	CodeProviderCancelled:       "登录已取消",
	CodeProviderPopupBlocked:    "登录窗口被浏览器拦截，请允许弹窗后重试",
	CodeProviderInvalid:         "登录凭证无效，请重新登录",
	CodeProviderUnknown:         "登录失败，请稍后重试",

	CodeInternalError:        "内部服务错误",
	CodeExternalServiceError: "外部服务错误",
	CodeIdentityProviderErr:  "身份服务暂时不可用",
	CodeDatabaseError:        "数据库错误",
	CodeCacheError:           "缓存服务错误",
	CodeMessageQueueError:    "消息队列错误",
}

// getCategoryByCode 根据错误码推断错误类别
func getCategoryByCode(code ErrorCode) string {
	switch {
	case code == CodeSuccess:
		return "success"
	case code >= 40001 && code < 40100:
		return "request"
	case code >= 40101 && code < 40200:
		return "auth"
	case code >= 40301 && code < 45000:
		return "access"
	case code >= 45001 && code < 46000:
		return "provider"
	case code >= 50001:
		return "system"
	default:
		return "unknown"
	}
}

// getLevelByCode 根据错误码推断日志级别
func getLevelByCode(code ErrorCode) ErrorLevel {
	switch {
	case code >= 50001:
		return LevelError
	case code >= 45001 && code < 46000:
		// 提供方错误属于用户操作的正常失败路径
		return LevelWarn
	default:
		return LevelWarn
	}
}

// isRetryableByCode 判断错误是否可重试
func isRetryableByCode(code ErrorCode) bool {
	switch code {
	case CodeExternalServiceError, CodeIdentityProviderErr,
		CodeCacheError, CodeMessageQueueError, CodeRateLimitExceeded,
		CodeProviderRateLimited:
		return true
	default:
		return false
	}
}

// HTTPStatus 返回错误码建议的 HTTP 状态码
// 注意：前端只认 api_code，HTTP 状态码仅供网关/代理层参考
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == CodeSuccess:
		return 200
	case c >= 40001 && c < 40100:
		return 400
	case c >= 40101 && c < 40200:
		return 401
	case c >= 40301 && c < 40400:
		return 403
	case c >= 40401 && c < 40500:
		return 404
	case c >= 40901 && c < 41000:
		return 409
	case c >= 42901 && c < 43000:
		return 429
	case c >= 45001 && c < 46000:
		// 提供方登录失败统一按 401 返回
		return 401
	default:
		return 500
	}
}
