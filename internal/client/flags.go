package client

import "sync"

// Domain 缓存策略灰度的独立数据域
type Domain string

const (
	DomainShops     Domain = "shops"
	DomainCustomers Domain = "customers"
	DomainMessages  Domain = "messages"
	DomainGeneral   Domain = "general"
)

// FeatureFlags 按域开关新取数策略，默认全部走旧的直连路径
// 每个调用点只做一次策略查表，迁移验证完成后旧路径整体删除
type FeatureFlags struct {
	mu      sync.RWMutex
	enabled map[Domain]bool
}

func NewFeatureFlags() *FeatureFlags {
	return &FeatureFlags{enabled: make(map[Domain]bool)}
}

// Enable 打开某个域的缓存策略
func (s *FeatureFlags) Enable(d Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[d] = true
}

// Disable 回退到旧策略，无需重新部署
func (s *FeatureFlags) Disable(d Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.enabled, d)
}

// Enabled 查询某个域当前生效的策略
func (s *FeatureFlags) Enabled(d Domain) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[d]
}
