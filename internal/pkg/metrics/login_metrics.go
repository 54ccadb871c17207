package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LoginMetrics 追踪登录与会话恢复链路的核心指标。
type LoginMetrics struct {
	Duration       *prometheus.HistogramVec
	ResolveOutcome *prometheus.CounterVec
	CacheHit       *prometheus.CounterVec
	CacheMiss      *prometheus.CounterVec
	CacheEvict     *prometheus.CounterVec
}

var (
	// DefaultLoginMetrics 全局共享实例。
	DefaultLoginMetrics *LoginMetrics

	loginDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1, 2}
)

func init() {
	DefaultLoginMetrics = NewLoginMetrics("chainpulse")
}

// NewLoginMetricsWithRegistry 创建 LoginMetrics,允许 tests 注入自定义 registry。
func NewLoginMetricsWithRegistry(namespace string, reg prometheus.Registerer) *LoginMetrics {
	if reg == nil {
		reg = GetRegisterer()
	}
	factory := promauto.With(reg)

	return &LoginMetrics{
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "login_duration_seconds",
				Help:      "Latency histogram for login endpoints by provider",
				Buckets:   loginDurationBuckets,
			},
			[]string{"provider", "outcome"},
		),

		ResolveOutcome: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_resolve_total",
				Help:      "Count of session resolve attempts by outcome",
			},
			[]string{"outcome"},
		),

		CacheHit: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_cache_hits_total",
				Help:      "Count of session cache hits by provider",
			},
			[]string{"provider"},
		),

		CacheMiss: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_cache_miss_total",
				Help:      "Count of session cache misses by provider",
			},
			[]string{"provider"},
		),

		CacheEvict: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_cache_evict_total",
				Help:      "Count of session cache evictions grouped by provider and reason",
			},
			[]string{"provider", "reason"},
		),
	}
}

// NewLoginMetrics 创建默认 registry 的 LoginMetrics。
func NewLoginMetrics(namespace string) *LoginMetrics {
	return NewLoginMetricsWithRegistry(namespace, GetRegisterer())
}

// ObserveDuration 记录登录耗时。
func (m *LoginMetrics) ObserveDuration(provider, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	provider = normalizeProviderName(provider)
	if outcome == "" {
		outcome = "success"
	}
	m.Duration.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

// IncResolveOutcome 记录一次会话恢复及其结果
// （authenticated / no_session / backend_denied / transport_error）。
func (m *LoginMetrics) IncResolveOutcome(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.ResolveOutcome.WithLabelValues(outcome).Inc()
}

// IncCacheHit 增加缓存命中次数。
func (m *LoginMetrics) IncCacheHit(provider string) {
	if m == nil {
		return
	}
	m.CacheHit.WithLabelValues(normalizeProviderName(provider)).Inc()
}

// IncCacheMiss 增加缓存未命中次数。
func (m *LoginMetrics) IncCacheMiss(provider string) {
	if m == nil {
		return
	}
	m.CacheMiss.WithLabelValues(normalizeProviderName(provider)).Inc()
}

// IncCacheEvicted 记录缓存剔除次数。
func (m *LoginMetrics) IncCacheEvicted(provider, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.CacheEvict.WithLabelValues(normalizeProviderName(provider), reason).Inc()
}

// normalizeProviderName 统一 provider 标签取值，避免基数失控。
func normalizeProviderName(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case "wallet", "google", "apple", "email", "session":
		return provider
	case "":
		return "unknown"
	default:
		return "other"
	}
}
