package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registererMu     sync.RWMutex
	activeRegisterer prometheus.Registerer = prometheus.DefaultRegisterer
)

// SetRegisterer 替换全局 Registerer，传 nil 恢复 prometheus 默认值。
// 供测试隔离指标注册，生产代码不调用。
func SetRegisterer(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	registererMu.Lock()
	activeRegisterer = r
	registererMu.Unlock()
}

// GetRegisterer 返回当前生效的 Registerer。
func GetRegisterer() prometheus.Registerer {
	registererMu.RLock()
	defer registererMu.RUnlock()
	return activeRegisterer
}
