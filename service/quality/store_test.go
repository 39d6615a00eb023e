/*
 * @module service/quality/store_test
 * @description 内存指标仓库单元测试，覆盖零初始化幂等、并发更新、副本语义和监听器通知
 * @architecture 测试层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 测试准备 -> 仓库操作 -> 结果验证
 */

package quality

import (
	"sync"
	"testing"

	"qualityhub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewZeroInitialized 测试零初始化记录的形态
func TestNewZeroInitialized(t *testing.T) {
	store := NewMetricsStore()

	metrics := store.NewZeroInitialized("spark")
	assert.Equal(t, "spark", metrics.ComponentName)
	assert.Equal(t, uint64(0), metrics.TotalMeasurements)
	assert.Equal(t, models.TrendInsufficientData, metrics.QualityTrend)
	assert.Empty(t, metrics.ImprovementRecommendations)
	assert.Empty(t, metrics.QualityAlerts)
}

// TestNewZeroInitialized_Idempotent 测试重复初始化不覆盖已有数据
func TestNewZeroInitialized_Idempotent(t *testing.T) {
	store := NewMetricsStore()
	store.NewZeroInitialized("spark")

	_, err := store.UpdateWithNewMeasurement("spark", makeDimensions(0.8))
	require.NoError(t, err)

	again := store.NewZeroInitialized("spark")
	assert.Equal(t, uint64(1), again.TotalMeasurements)
}

// TestUpdateWithNewMeasurement_AutoInit 测试未知组件首次测量时自动建档
func TestStoreUpdate_AutoInit(t *testing.T) {
	store := NewMetricsStore()

	metrics, err := store.UpdateWithNewMeasurement("nexus", makeDimensions(0.7))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), metrics.TotalMeasurements)

	stored, ok := store.GetMetrics("nexus")
	require.True(t, ok)
	assert.Equal(t, uint64(1), stored.TotalMeasurements)
}

// TestStoreUpdate_ValidationFailure 测试校验失败时仓库状态不变
func TestStoreUpdate_ValidationFailure(t *testing.T) {
	store := NewMetricsStore()
	_, err := store.UpdateWithNewMeasurement("nexus", makeDimensions(0.7))
	require.NoError(t, err)

	bad := makeDimensions(0.7)
	bad.EcosystemIntegrationQuality = 2.0
	_, err = store.UpdateWithNewMeasurement("nexus", bad)

	var rangeErr *models.OutOfRangeError
	require.ErrorAs(t, err, &rangeErr)

	stored, ok := store.GetMetrics("nexus")
	require.True(t, ok)
	assert.Equal(t, uint64(1), stored.TotalMeasurements)
}

// TestStoreUpdate_RejectedFirstMeasurementDoesNotRegister 测试未跟踪组件的非法首次测量不会建档
func TestStoreUpdate_RejectedFirstMeasurementDoesNotRegister(t *testing.T) {
	store := NewMetricsStore()

	bad := makeDimensions(0.7)
	bad.TechnicalQuality = 1.5
	_, err := store.UpdateWithNewMeasurement("spark", bad)

	var rangeErr *models.OutOfRangeError
	require.ErrorAs(t, err, &rangeErr)

	_, ok := store.GetMetrics("spark")
	assert.False(t, ok)
	assert.Empty(t, store.ListComponents())
}

// TestGetMetrics_ReturnsCopy 测试读取结果与仓库内部状态隔离
func TestGetMetrics_ReturnsCopy(t *testing.T) {
	store := NewMetricsStore()
	_, err := store.UpdateWithNewMeasurement("spark", makeDimensions(0.7))
	require.NoError(t, err)

	first, ok := store.GetMetrics("spark")
	require.True(t, ok)
	first.TotalMeasurements = 999
	first.CurrentQuality.TechnicalQuality = 0.0

	second, ok := store.GetMetrics("spark")
	require.True(t, ok)
	assert.Equal(t, uint64(1), second.TotalMeasurements)
	assert.InDelta(t, 0.7, second.CurrentQuality.TechnicalQuality, 1e-9)
}

// TestGetMetrics_Unknown 测试未知组件返回不存在
func TestGetMetrics_Unknown(t *testing.T) {
	store := NewMetricsStore()
	_, ok := store.GetMetrics("ghost")
	assert.False(t, ok)
}

// TestListComponents_Sorted 测试组件列表按名称排序
func TestListComponents_Sorted(t *testing.T) {
	store := NewMetricsStore()
	store.NewZeroInitialized("zeta")
	store.NewZeroInitialized("alpha")
	store.NewZeroInitialized("mid")

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, store.ListComponents())
}

// TestUpdateListener 测试更新成功后监听器收到组件名和最新副本
func TestUpdateListener(t *testing.T) {
	store := NewMetricsStore()

	var mu sync.Mutex
	var gotName string
	var gotCount uint64
	store.AddUpdateListener(func(componentName string, metrics *models.QualityMetrics) {
		mu.Lock()
		defer mu.Unlock()
		gotName = componentName
		gotCount = metrics.TotalMeasurements
	})

	_, err := store.UpdateWithNewMeasurement("spark", makeDimensions(0.8))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "spark", gotName)
	assert.Equal(t, uint64(1), gotCount)
}

// TestUpdateListener_NotCalledOnFailure 测试校验失败时不触发监听器
func TestUpdateListener_NotCalledOnFailure(t *testing.T) {
	store := NewMetricsStore()

	called := false
	store.AddUpdateListener(func(string, *models.QualityMetrics) {
		called = true
	})

	bad := makeDimensions(0.8)
	bad.TechnicalQuality = -1
	_, err := store.UpdateWithNewMeasurement("spark", bad)
	require.Error(t, err)
	assert.False(t, called)
}

// TestStore_ConcurrentUpdates 测试多协程并发写入计数不丢失
func TestStore_ConcurrentUpdates(t *testing.T) {
	store := NewMetricsStore()

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, err := store.UpdateWithNewMeasurement("spark", makeDimensions(0.6))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	metrics, ok := store.GetMetrics("spark")
	require.True(t, ok)
	assert.Equal(t, uint64(goroutines*perGoroutine), metrics.TotalMeasurements)
	// 所有测量同值时均值应收敛于该值
	assert.InDelta(t, 0.6, metrics.HistoricalAverageQuality.TechnicalQuality, 1e-9)
}

// TestSnapshot_DeepCopy 测试快照与仓库状态隔离
func TestSnapshot_DeepCopy(t *testing.T) {
	store := NewMetricsStore()
	_, err := store.UpdateWithNewMeasurement("spark", makeDimensions(0.7))
	require.NoError(t, err)

	snapshot := store.Snapshot()
	require.Contains(t, snapshot, "spark")
	snapshot["spark"].TotalMeasurements = 42

	stored, ok := store.GetMetrics("spark")
	require.True(t, ok)
	assert.Equal(t, uint64(1), stored.TotalMeasurements)
}
