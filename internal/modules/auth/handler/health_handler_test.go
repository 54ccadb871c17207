package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performHealthRequest(t *testing.T, h echo.HandlerFunc, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthLiveAlwaysOK(t *testing.T) {
	h := NewHealthHandler("account-gateway", nil)
	// 依赖全挂也不影响存活检查
	h.AddProbe("redis", func(ctx context.Context) error { return errors.New("down") })

	rec, body := performHealthRequest(t, h.Live, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "account-gateway", body["service"])
}

func TestHealthReadyAllProbesPass(t *testing.T) {
	h := NewHealthHandler("account-gateway", nil)
	h.AddProbe("redis", func(ctx context.Context) error { return nil })
	h.AddProbe("platform", func(ctx context.Context) error { return nil })

	rec, body := performHealthRequest(t, h.Ready, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["redis"])
	assert.Equal(t, "ok", checks["platform"])
}

func TestHealthReadyFailingProbeReturns503(t *testing.T) {
	h := NewHealthHandler("account-gateway", nil)
	h.AddProbe("redis", func(ctx context.Context) error { return nil })
	h.AddProbe("nats", func(ctx context.Context) error { return errors.New("connection closed") })

	rec, body := performHealthRequest(t, h.Ready, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])

	// 失败的依赖带原因，健康的照常报 ok
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["redis"])
	assert.Equal(t, "connection closed", checks["nats"])
}

func TestHealthReadyWithoutProbes(t *testing.T) {
	h := NewHealthHandler("account-gateway", nil)

	rec, body := performHealthRequest(t, h.Ready, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
