package middleware

import (
	"chainpulse-self/internal/pkg/contextkeys"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TraceMiddleware 确保每个请求都有一个唯一的 Trace ID。
// 优先沿用 "X-Request-ID" 请求头里的值（保持跨服务调用的追踪链），
// 没有时生成新的 UUID，并写回响应头方便调用方排障。
func TraceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			traceID := c.Request().Header.Get("X-Request-ID")
			if traceID == "" {
				traceID = uuid.NewString()
			}

			ctx := contextkeys.WithTraceID(c.Request().Context(), traceID)
			c.SetRequest(c.Request().WithContext(ctx))

			c.Response().Header().Set("X-Request-ID", traceID)

			return next(c)
		}
	}
}
