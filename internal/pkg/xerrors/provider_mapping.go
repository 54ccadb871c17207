package xerrors

import (
	"log/slog"
	"strings"
)

// providerErrMapping 是前端 OAuth SDK 上报的错误码到业务错误码的映射。
// 弹窗式 OAuth 登录失败时，前端把提供方 SDK 的错误码原样上报，
// 网关在这里统一翻译成固定的错误分类与可展示文案。
var providerErrMapping = map[string]ErrorCode{
	// 账号类
	"auth/user-not-found":            CodeProviderUserNotFound,
	"auth/wrong-password":            CodeProviderWrongCredential,
	"auth/invalid-password":          CodeProviderWrongCredential,
	"auth/email-already-in-use":      CodeProviderAlreadyInUse,
	"auth/credential-already-in-use": CodeProviderAlreadyInUse,
	"auth/weak-password":             CodeProviderWeakCredential,
	"auth/user-disabled":             CodeProviderDisabled,

	// 流程类
	"auth/too-many-requests":       CodeProviderRateLimited,
	"auth/popup-closed-by-user":    CodeProviderCancelled,
	"auth/cancelled-popup-request": CodeProviderCancelled,
	"auth/popup-blocked":           CodeProviderPopupBlocked,
	"auth/invalid-credential":      CodeProviderInvalid,
	"auth/invalid-email":           CodeProviderInvalid,
}

// TranslateProviderError 将提供方错误码翻译为业务错误。
// 未映射的错误码回退为通用的登录失败文案，并记录日志便于后续补充映射表。
func TranslateProviderError(providerCode string) *AppError {
	code, ok := providerErrMapping[strings.TrimSpace(providerCode)]
	if !ok {
		slog.Warn("未知的身份提供方错误码", "provider_code", providerCode)
		code = CodeProviderUnknown
	}
	return FromCode(code).WithMetadata("provider_code", providerCode)
}

// IsCancelledByUser 判断提供方错误是否属于用户主动取消
// （取消不算异常：不记录失败历史，也不展示错误弹层）
func IsCancelledByUser(err *AppError) bool {
	return err != nil && err.Code == CodeProviderCancelled
}

// identityErrMapping 是 Kratos UI 消息 ID 到业务错误码的映射。
// 邮箱密码登录走 Kratos Native Flow，失败时 Kratos 返回带 ID 的 UI 消息。
var identityErrMapping = map[int]ErrorCode{
	// 注册/凭证校验类
	4000001: CodeProviderInvalid,
	4000002: CodeProviderWeakCredential,
	4000003: CodeProviderAlreadyInUse,
	4000004: CodeProviderInvalid,
	4000005: CodeProviderWeakCredential,
	4000007: CodeProviderWeakCredential,
	4000008: CodeProviderInvalid,

	// 登录类
	4010001: CodeProviderWrongCredential,
	4010002: CodeProviderWrongCredential,
	4010003: CodeProviderWrongCredential,
}

// TranslateIdentityError 根据 Kratos 的 UI message ID 返回业务错误。
func TranslateIdentityError(kratosID int) *AppError {
	code, ok := identityErrMapping[kratosID]
	if !ok {
		slog.Warn("未知的 Kratos 错误 ID", "kratos_id", kratosID)
		code = CodeProviderUnknown
	}
	return FromCode(code).WithMetadata("kratos_error_id", kratosID)
}

// TranslateIdentityErrorText 根据 Kratos 返回的消息文本进行兜底翻译
// （当 ID 不可用或未映射时）
func TranslateIdentityErrorText(text string) *AppError {
	lower := strings.ToLower(text)

	containsAny := func(needles ...string) bool {
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
		return false
	}

	switch {
	// 身份已存在（邮箱/用户名）
	case containsAny("exists already", "already exists", "already taken", "已被注册", "已存在"):
		return FromCode(CodeProviderAlreadyInUse).WithMetadata("kratos_error_text", text)
	// 密码过短/策略问题
	case containsAny("too short", "minimum length", "not long enough", "密码太短", "长度不足"):
		return FromCode(CodeProviderWeakCredential).WithMetadata("kratos_error_text", text)
	// 凭证无效（登录）
	case containsAny("invalid credentials", "wrong password", "no such user", "user not found"):
		return FromCode(CodeProviderWrongCredential).WithMetadata("kratos_error_text", text)
	case containsAny("disabled", "locked", "已禁用"):
		return FromCode(CodeProviderDisabled).WithMetadata("kratos_error_text", text)
	default:
		return FromCode(CodeProviderUnknown).WithMetadata("kratos_error_text", text)
	}
}
