package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainpulse-self/internal/pkg/contextkeys"
)

func TestContextHandlerAttachesRequestIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := contextkeys.WithTraceID(context.Background(), "trace-1")
	ctx = contextkeys.WithUserID(ctx, "u-1")
	ctx = contextkeys.WithSessionID(ctx, "sess-1")

	logger.InfoContext(ctx, "登录成功")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "trace-1", record["trace_id"])
	assert.Equal(t, "u-1", record["user_id"])
	assert.Equal(t, "sess-1", record["session_id"])
}

func TestContextHandlerSkipsMissingIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "启动")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "session_id")
}
