/*
 * @module service/quality/store
 * @description 组件质量指标存储，按组件名维护聚合指标，写操作串行化，读操作可并发
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 零值初始化 -> 测量更新 -> 指标查询
 * @rules 存储实例通过依赖注入传递，不使用进程级单例，便于测试隔离
 * @dependencies qualityhub-service/service/models, sync
 * @refs service/quality/tracker.go, service/init.go
 */

package quality

import (
	"sort"
	"sync"

	"qualityhub-service/service/models"
)

// UpdateListener 指标更新回调，在更新提交后持锁外调用
type UpdateListener func(componentName string, metrics *models.QualityMetrics)

// MetricsStore 质量指标存储
type MetricsStore struct {
	mu        sync.RWMutex
	metrics   map[string]*models.QualityMetrics
	listeners []UpdateListener
}

// NewMetricsStore 创建质量指标存储实例
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{
		metrics: make(map[string]*models.QualityMetrics),
	}
}

// AddUpdateListener 注册指标更新回调
func (s *MetricsStore) AddUpdateListener(listener UpdateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// NewZeroInitialized 为组件创建全零初始化的聚合指标
// 组件已存在时返回现有指标，不会重置已累计的状态
func (s *MetricsStore) NewZeroInitialized(componentName string) *models.QualityMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.metrics[componentName]; ok {
		return copyMetrics(existing)
	}

	s.metrics[componentName] = newZeroMetrics(componentName)
	return copyMetrics(s.metrics[componentName])
}

// UpdateWithNewMeasurement 用一次新测量更新组件指标
// 组件未被跟踪时先零值初始化；校验失败时状态不变并原样返回错误
func (s *MetricsStore) UpdateWithNewMeasurement(componentName string, dims models.QualityDimensions) (*models.QualityMetrics, error) {
	s.mu.Lock()

	// 先校验再建档，拒绝的测量不能把未跟踪组件注册进存储
	if err := ValidateDimensions(&dims); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	m, ok := s.metrics[componentName]
	if !ok {
		m = newZeroMetrics(componentName)
		s.metrics[componentName] = m
	}

	if err := UpdateWithNewMeasurement(m, dims); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	result := copyMetrics(m)
	listeners := make([]UpdateListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	// 回调在锁外执行，避免监听器反向调用存储时死锁
	for _, listener := range listeners {
		listener(componentName, copyMetrics(result))
	}

	return result, nil
}

// GetMetrics 查询组件的聚合指标
func (s *MetricsStore) GetMetrics(componentName string) (*models.QualityMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metrics[componentName]
	if !ok {
		return nil, false
	}
	return copyMetrics(m), true
}

// ListComponents 列出所有被跟踪的组件名，按字典序排序
func (s *MetricsStore) ListComponents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.metrics))
	for name := range s.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot 返回全部组件指标的深拷贝，供定时快照落库使用
func (s *MetricsStore) Snapshot() map[string]*models.QualityMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]*models.QualityMetrics, len(s.metrics))
	for name, m := range s.metrics {
		snapshot[name] = copyMetrics(m)
	}
	return snapshot
}

// newZeroMetrics 全零初始化，评分不做默认值抬升
func newZeroMetrics(componentName string) *models.QualityMetrics {
	return &models.QualityMetrics{
		ComponentName:              componentName,
		TotalMeasurements:          0,
		QualityTrend:               models.TrendInsufficientData,
		ComponentSpecificMetrics:   make(map[string]models.ComponentQualityMetrics),
		ImprovementRecommendations: make([]models.ImprovementRecommendation, 0),
		QualityAlerts:              make([]models.QualityAlert, 0),
	}
}

// copyMetrics 深拷贝聚合指标，防止调用方绕过锁修改内部状态
func copyMetrics(m *models.QualityMetrics) *models.QualityMetrics {
	result := *m

	result.ComponentSpecificMetrics = make(map[string]models.ComponentQualityMetrics, len(m.ComponentSpecificMetrics))
	for k, v := range m.ComponentSpecificMetrics {
		result.ComponentSpecificMetrics[k] = v
	}

	result.ImprovementRecommendations = make([]models.ImprovementRecommendation, len(m.ImprovementRecommendations))
	copy(result.ImprovementRecommendations, m.ImprovementRecommendations)

	result.QualityAlerts = make([]models.QualityAlert, len(m.QualityAlerts))
	copy(result.QualityAlerts, m.QualityAlerts)

	return &result
}
