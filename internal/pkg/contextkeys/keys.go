// File: internal/pkg/contextkeys/keys.go
package contextkeys

// 定义所有context key的类型，避免包间冲突
type contextKey string

const (
	TraceIDKey   contextKey = "trace_id"
	UserIDKey    contextKey = "user_id"
	SessionIDKey contextKey = "session_id"
	RequestIDKey contextKey = "request_id"

	ClientIPKey  contextKey = "client_ip"
	UserAgentKey contextKey = "user_agent"
	LanguageKey  contextKey = "language"
)
