// File: internal/modules/auth/handler/health_handler.go
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"chainpulse-self/internal/pkg/log"
)

// ProbeFunc 探测单个依赖是否可用，返回 nil 表示健康。
type ProbeFunc func(ctx context.Context) error

// probeTimeout 单个依赖探测的超时，避免某个依赖卡死拖垮整个就绪检查。
const probeTimeout = 2 * time.Second

// HealthHandler 提供存活与就绪两级健康检查。
// 存活检查只确认进程在响应；就绪检查逐个探测已注册的依赖
// （Redis、NATS、平台后端），任一失败返回 503。
type HealthHandler struct {
	service string
	probes  map[string]ProbeFunc
	logger  log.Logger
}

// NewHealthHandler 创建健康检查处理器。
func NewHealthHandler(service string, logger log.Logger) *HealthHandler {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &HealthHandler{
		service: service,
		probes:  make(map[string]ProbeFunc),
		logger:  logger.With("component", "health"),
	}
}

// AddProbe 注册一个依赖探测。未配置的可选依赖不注册即可。
func (h *HealthHandler) AddProbe(name string, probe ProbeFunc) {
	h.probes[name] = probe
}

// Live 存活检查
// @Summary 存活检查
// @Description 进程级存活探测，不检查任何外部依赖
// @Tags 健康
// @Produce json
// @Success 200 {object} map[string]string "进程存活"
// @Router /health [get]
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": h.service,
	})
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 逐个探测已注册依赖，任一不可用返回 503
// @Tags 健康
// @Produce json
// @Success 200 {object} map[string]string "全部依赖可用"
// @Failure 503 {object} map[string]string "存在不可用依赖"
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c echo.Context) error {
	checks := make(map[string]string, len(h.probes))
	healthy := true

	for _, name := range h.probeNames() {
		ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
		err := h.probes[name](ctx)
		cancel()

		if err != nil {
			healthy = false
			checks[name] = err.Error()
			h.logger.WarnContext(c.Request().Context(), "依赖探测失败",
				log.String("dependency", name),
				log.Any("error", err))
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	statusText := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "degraded"
	}
	return c.JSON(status, map[string]interface{}{
		"status":  statusText,
		"service": h.service,
		"checks":  checks,
	})
}

// probeNames 固定探测顺序，保证响应与日志稳定可比。
func (h *HealthHandler) probeNames() []string {
	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
