// File: internal/pkg/response/responser.go
package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chainpulse-self/internal/pkg/contextkeys"
	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/xerrors"
)

// EmptyData 是一个用于在 API 成功响应中表示“无数据”的结构体。
// 使用一个具体的空结构体，比直接返回 nil 或 interface{} 更类型安全、意图更明确。
type EmptyData struct{}

// APIResponse 是平台统一的响应信封。
// 约定：api_code == 200 是唯一的成功判定依据，HTTP 状态码仅作传输层参考；
// data 只在成功时出现，失败响应只有 api_code 和 api_msg 两个字段。
type APIResponse[T any] struct {
	APICode int    `json:"api_code"`       // 业务响应码
	APIMsg  string `json:"api_msg"`        // 响应消息
	Data    *T     `json:"data,omitempty"` // 响应数据，成功时返回
}

// Success 创建一个成功的信封
func Success[T any](data *T) *APIResponse[T] {
	return &APIResponse[T]{
		APICode: xerrors.CodeSuccess.ToInt(),
		APIMsg:  "成功",
		Data:    data,
	}
}

// Error 创建一个失败的信封
// 注意：失败响应不携带 data，泛型 T 的具体类型不重要
func Error[T any](code int, message string) *APIResponse[T] {
	return &APIResponse[T]{
		APICode: code,
		APIMsg:  message,
	}
}

// Writer 统一的响应写出接口，业务代码不直接操作 http.ResponseWriter
type Writer interface {
	WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error
	WriteError(ctx context.Context, w http.ResponseWriter, err error) error
	WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error
}

// Handler 是 Writer 的默认实现，负责错误到信封的转换和日志记录
type Handler struct {
	logger      log.Logger
	environment string
}

// NewResponseHandler 创建响应处理器。
// environment 为 "production" 时对外隐藏内部错误细节。
func NewResponseHandler(logger log.Logger, environment string) *Handler {
	return &Handler{
		logger:      logger,
		environment: environment,
	}
}

// WriteSuccess 写出成功响应（HTTP 200 + api_code 200）
func (h *Handler) WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error {
	resp := &APIResponse[any]{
		APICode: xerrors.CodeSuccess.ToInt(),
		APIMsg:  "成功",
		Data:    &data,
	}
	return h.writeJSON(w, http.StatusOK, resp)
}

// WriteError 将任意错误转换为失败信封后写出。
// AppError 按其错误码分段映射 HTTP 状态；未知错误一律按内部错误处理。
func (h *Handler) WriteError(ctx context.Context, w http.ResponseWriter, err error) error {
	var appErr *xerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = xerrors.NewWithError(xerrors.CodeInternalError, "内部服务错误", err)
	}

	if traceID := contextkeys.GetTraceID(ctx); traceID != "" {
		appErr = appErr.WithTraceID(traceID)
	}
	h.logError(ctx, appErr)

	msg := appErr.Message
	if h.environment == "production" && appErr.Code.HTTPStatus() >= http.StatusInternalServerError {
		// 生产环境不向客户端泄漏内部错误细节
		msg = appErr.Code.Message()
	}

	resp := Error[EmptyData](appErr.Code.ToInt(), msg)
	return h.writeJSON(w, appErr.Code.HTTPStatus(), resp)
}

// WriteJSON 直接返回 JSON 响应(跳过 APIResponse 包装)
func (h *Handler) WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	return h.writeJSON(w, statusCode, data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// header 已写出，此处只能记录日志
		h.logger.Error("写入JSON响应失败", err)
		return err
	}
	return nil
}

func (h *Handler) logError(ctx context.Context, appErr *xerrors.AppError) {
	switch appErr.Level {
	case xerrors.LevelCritical, xerrors.LevelError:
		h.logger.ErrorContext(ctx, "请求处理失败", log.Any("error", appErr))
	case xerrors.LevelWarn:
		h.logger.WarnContext(ctx, "请求处理失败", log.Any("error", appErr))
	default:
		h.logger.InfoContext(ctx, "请求处理失败", log.Any("error", appErr))
	}
}
