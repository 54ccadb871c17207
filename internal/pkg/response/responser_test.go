package response

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainpulse-self/internal/pkg/log"
	"chainpulse-self/internal/pkg/xerrors"
)

func newTestHandler(environment string) *Handler {
	logger := log.NewLogger(slog.NewTextHandler(httptest.NewRecorder(), nil))
	return NewResponseHandler(logger, environment)
}

func TestWriteSuccessEnvelope(t *testing.T) {
	h := newTestHandler("development")
	rec := httptest.NewRecorder()

	err := h.WriteSuccess(context.Background(), rec, map[string]string{"nickname": "satoshi"})
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `200`, string(body["api_code"]))
	assert.Contains(t, body, "api_msg")
	assert.Contains(t, body, "data")
}

func TestWriteErrorAppError(t *testing.T) {
	h := newTestHandler("development")
	rec := httptest.NewRecorder()

	err := h.WriteError(context.Background(), rec, xerrors.FromCode(xerrors.CodeSessionExpired))
	require.NoError(t, err)
	assert.Equal(t, 401, rec.Code)

	var body struct {
		APICode int             `json:"api_code"`
		APIMsg  string          `json:"api_msg"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, xerrors.CodeSessionExpired.ToInt(), body.APICode)
	assert.NotEmpty(t, body.APIMsg)
	// 失败响应不携带 data
	assert.Nil(t, body.Data)
}

func TestWriteErrorUnknownErrorBecomesInternal(t *testing.T) {
	h := newTestHandler("development")
	rec := httptest.NewRecorder()

	require.NoError(t, h.WriteError(context.Background(), rec, errors.New("boom")))
	assert.Equal(t, 500, rec.Code)

	var body struct {
		APICode int `json:"api_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, xerrors.CodeInternalError.ToInt(), body.APICode)
}

func TestWriteErrorProductionHidesInternalDetail(t *testing.T) {
	h := newTestHandler("production")
	rec := httptest.NewRecorder()

	appErr := xerrors.NewWithError(xerrors.CodeDatabaseError, "pq: connection refused at 10.0.0.3", nil)
	require.NoError(t, h.WriteError(context.Background(), rec, appErr))

	var body struct {
		APIMsg string `json:"api_msg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body.APIMsg, "10.0.0.3")
}

func TestFromBackendRoundTrip(t *testing.T) {
	// 平台后端的失败信封原样转发给前端
	h := newTestHandler("development")
	rec := httptest.NewRecorder()

	require.NoError(t, h.WriteError(context.Background(), rec, xerrors.FromBackend(40901, "邮箱已被绑定")))

	var body struct {
		APICode int    `json:"api_code"`
		APIMsg  string `json:"api_msg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 40901, body.APICode)
	assert.Equal(t, "邮箱已被绑定", body.APIMsg)
}
