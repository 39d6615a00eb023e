/*
 * @module service/quality/tracker_test
 * @description 质量度量核心计算单元测试，覆盖校验、加权总分、运行均值、趋势分类和告警/建议生成
 * @architecture 测试层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 测试准备 -> 计算执行 -> 结果验证
 */

package quality

import (
	"testing"
	"time"

	"qualityhub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeDimensions 构造一次全维度同值的测量
func makeDimensions(value float64) models.QualityDimensions {
	return models.QualityDimensions{
		TechnicalQuality:             value,
		ConsciousnessCompatibility:   value,
		PartnershipQuality:           value,
		BeneficialOutcomeAchievement: value,
		EcosystemIntegrationQuality:  value,
		MeasurementTimestamp:         time.Now().Add(-time.Second),
	}
}

// TestValidateDimensions_Success 测试合法测量通过校验
func TestValidateDimensions_Success(t *testing.T) {
	dims := makeDimensions(0.8)
	assert.NoError(t, ValidateDimensions(&dims))
}

// TestValidateDimensions_Idempotent 测试对同一测量重复校验结果一致
func TestValidateDimensions_Idempotent(t *testing.T) {
	dims := makeDimensions(0.8)
	assert.NoError(t, ValidateDimensions(&dims))
	assert.NoError(t, ValidateDimensions(&dims))

	bad := makeDimensions(0.8)
	bad.TechnicalQuality = 1.5
	first := ValidateDimensions(&bad)
	second := ValidateDimensions(&bad)
	require.Error(t, first)
	require.Error(t, second)
	assert.Equal(t, first.Error(), second.Error())
}

// TestValidateDimensions_OutOfRange 测试越界字段被拒绝并报告字段名和值
func TestValidateDimensions_OutOfRange(t *testing.T) {
	dims := makeDimensions(0.8)
	dims.TechnicalQuality = 1.5

	err := ValidateDimensions(&dims)
	require.Error(t, err)

	var rangeErr *models.OutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "technical_quality", rangeErr.Field)
	assert.Equal(t, 1.5, rangeErr.Value)
}

// TestValidateDimensions_NegativeValue 测试负值被拒绝
func TestValidateDimensions_NegativeValue(t *testing.T) {
	dims := makeDimensions(0.8)
	dims.PartnershipQuality = -0.1

	var rangeErr *models.OutOfRangeError
	require.ErrorAs(t, ValidateDimensions(&dims), &rangeErr)
	assert.Equal(t, "partnership_quality", rangeErr.Field)
}

// TestValidateDimensions_FutureTimestamp 测试未来时间戳被拒绝
func TestValidateDimensions_FutureTimestamp(t *testing.T) {
	dims := makeDimensions(0.8)
	dims.MeasurementTimestamp = time.Now().Add(time.Hour)

	var tsErr *models.FutureTimestampError
	require.ErrorAs(t, ValidateDimensions(&dims), &tsErr)
}

// TestCalculateOverallQuality_WeightedSum 测试加权总分计算
// 0.25*0.9 + 0.25*0.4 + 0.25*0.9 + 0.15*0.9 + 0.10*0.9 = 0.775
func TestCalculateOverallQuality_WeightedSum(t *testing.T) {
	dims := makeDimensions(0.9)
	dims.PartnershipQuality = 0.4

	result := CalculateOverallQuality(dims)
	assert.InDelta(t, 0.775, result.OverallQuality, 1e-9)
}

// TestCalculateOverallQuality_Confidence 测试置信度按非零维度数计算
func TestCalculateOverallQuality_Confidence(t *testing.T) {
	dims := makeDimensions(0.5)
	result := CalculateOverallQuality(dims)
	assert.InDelta(t, 1.0, result.ConfidenceLevel, 1e-9)

	partial := models.QualityDimensions{
		TechnicalQuality:     0.5,
		PartnershipQuality:   0.5,
		MeasurementTimestamp: time.Now().Add(-time.Second),
	}
	result = CalculateOverallQuality(partial)
	assert.InDelta(t, 0.4, result.ConfidenceLevel, 1e-9)

	zero := models.QualityDimensions{}
	result = CalculateOverallQuality(zero)
	assert.InDelta(t, 0.0, result.ConfidenceLevel, 1e-9)
}

// TestUpdateWithNewMeasurement_FirstMeasurement 测试首次测量直接取新值
func TestUpdateWithNewMeasurement_FirstMeasurement(t *testing.T) {
	metrics := &models.QualityMetrics{ComponentName: "spark"}
	dims := makeDimensions(0.8)

	require.NoError(t, UpdateWithNewMeasurement(metrics, dims))

	assert.Equal(t, uint64(1), metrics.TotalMeasurements)
	assert.InDelta(t, 0.8, metrics.HistoricalAverageQuality.TechnicalQuality, 1e-9)
	assert.Equal(t, "historical_avg_1", metrics.HistoricalAverageQuality.MeasurementID)
	assert.Equal(t, models.TrendInsufficientData, metrics.QualityTrend)
}

// TestUpdateWithNewMeasurement_RunningAverage 测试运行均值等于算术平均
func TestUpdateWithNewMeasurement_RunningAverage(t *testing.T) {
	metrics := &models.QualityMetrics{ComponentName: "spark"}
	values := []float64{0.2, 0.5, 0.8, 0.6, 1.0}

	sum := 0.0
	for i, v := range values {
		require.NoError(t, UpdateWithNewMeasurement(metrics, makeDimensions(v)))
		sum += v

		expected := sum / float64(i+1)
		assert.InDelta(t, expected, metrics.HistoricalAverageQuality.TechnicalQuality, 1e-9)
		assert.InDelta(t, expected, metrics.HistoricalAverageQuality.PartnershipQuality, 1e-9)
		assert.Equal(t, uint64(i+1), metrics.TotalMeasurements)
	}
}

// TestUpdateWithNewMeasurement_FailureLeavesStateUntouched 测试校验失败时聚合状态不变
func TestUpdateWithNewMeasurement_FailureLeavesStateUntouched(t *testing.T) {
	metrics := &models.QualityMetrics{ComponentName: "spark"}
	require.NoError(t, UpdateWithNewMeasurement(metrics, makeDimensions(0.8)))
	before := *metrics

	bad := makeDimensions(0.8)
	bad.TechnicalQuality = 1.5
	err := UpdateWithNewMeasurement(metrics, bad)

	var rangeErr *models.OutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "technical_quality", rangeErr.Field)
	assert.Equal(t, 1.5, rangeErr.Value)
	assert.Equal(t, before.TotalMeasurements, metrics.TotalMeasurements)
	assert.Equal(t, before.CurrentQuality, metrics.CurrentQuality)
	assert.Equal(t, before.HistoricalAverageQuality.TechnicalQuality, metrics.HistoricalAverageQuality.TechnicalQuality)
}

// TestClassifyTrend_Boundary 测试趋势分类边界
// 恰好+0.05为stable，需严格大于带宽才判定improving
func TestClassifyTrend_Boundary(t *testing.T) {
	assert.Equal(t, models.TrendStable, classifyTrend(0.65, 0.60, 3))
	assert.Equal(t, models.TrendImproving, classifyTrend(0.651, 0.60, 3))
	assert.Equal(t, models.TrendStable, classifyTrend(0.55, 0.60, 3))
	assert.Equal(t, models.TrendDegrading, classifyTrend(0.549, 0.60, 3))
}

// TestClassifyTrend_InsufficientData 测试测量数不足时返回insufficient_data
func TestClassifyTrend_InsufficientData(t *testing.T) {
	assert.Equal(t, models.TrendInsufficientData, classifyTrend(0.9, 0.1, 1))
	assert.Equal(t, models.TrendInsufficientData, classifyTrend(0.9, 0.1, 2))
	assert.Equal(t, models.TrendImproving, classifyTrend(0.9, 0.1, 3))
}

// TestBuildRecommendations_BelowThreshold 测试低于0.7的维度生成对应优先级的建议
func TestBuildRecommendations_BelowThreshold(t *testing.T) {
	current := makeDimensions(0.9)
	current.PartnershipQuality = 0.6
	current.TechnicalQuality = 0.65
	current.EcosystemIntegrationQuality = 0.5

	recommendations := buildRecommendations(&current)
	require.Len(t, recommendations, 3)

	byCategory := make(map[models.DimensionCategory]models.ImprovementRecommendation)
	for _, rec := range recommendations {
		byCategory[rec.Category] = rec
	}

	partnership := byCategory[models.CategoryPartnership]
	assert.Equal(t, models.PriorityCritical, partnership.Priority)
	assert.InDelta(t, 0.25, partnership.EstimatedImprovement, 1e-9)

	technical := byCategory[models.CategoryTechnical]
	assert.Equal(t, models.PriorityHigh, technical.Priority)
	assert.InDelta(t, 0.20, technical.EstimatedImprovement, 1e-9)

	ecosystem := byCategory[models.CategoryEcosystem]
	assert.Equal(t, models.PriorityMedium, ecosystem.Priority)
	assert.InDelta(t, 0.15, ecosystem.EstimatedImprovement, 1e-9)
}

// TestBuildRecommendations_AllHealthy 测试所有维度达标时不生成建议
func TestBuildRecommendations_AllHealthy(t *testing.T) {
	current := makeDimensions(0.9)
	assert.Empty(t, buildRecommendations(&current))
}

// TestBuildAlerts_CriticalPartnership 测试协作质量0.4触发唯一的Critical告警
func TestBuildAlerts_CriticalPartnership(t *testing.T) {
	current := makeDimensions(0.9)
	current.PartnershipQuality = 0.4
	current = CalculateOverallQuality(current)

	alerts := buildAlerts(&current, models.TrendInsufficientData)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, models.CategoryPartnership, alert.Category)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.True(t, alert.RequiresImmediateAction)
	assert.InDelta(t, 0.4, alert.Value, 1e-9)
}

// TestBuildAlerts_TechnicalWarningBand 测试技术质量警告区间[0.5, 0.6)
func TestBuildAlerts_TechnicalWarningBand(t *testing.T) {
	current := makeDimensions(0.9)
	current.TechnicalQuality = 0.55

	alerts := buildAlerts(&current, models.TrendStable)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.CategoryTechnical, alerts[0].Category)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
	assert.False(t, alerts[0].RequiresImmediateAction)

	// 区间上界0.6不触发
	current.TechnicalQuality = 0.6
	assert.Empty(t, buildAlerts(&current, models.TrendStable))

	// 低于0.5的技术质量不在警告区间内
	current.TechnicalQuality = 0.4
	assert.Empty(t, buildAlerts(&current, models.TrendStable))
}

// TestBuildAlerts_DegradingTrend 测试下降趋势追加整体Warning告警
func TestBuildAlerts_DegradingTrend(t *testing.T) {
	current := makeDimensions(0.9)
	current = CalculateOverallQuality(current)

	alerts := buildAlerts(&current, models.TrendDegrading)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.CategoryOverall, alerts[0].Category)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
}

// TestBuildAlerts_NoAlertAtThreshold 测试维度恰好等于阈值时不告警
func TestBuildAlerts_NoAlertAtThreshold(t *testing.T) {
	current := makeDimensions(0.9)
	current.PartnershipQuality = 0.5
	assert.Empty(t, buildAlerts(&current, models.TrendStable))
}

// TestUpdateWithNewMeasurement_EndToEnd 端到端场景
// 三次测量后计数为3，趋势不再是insufficient_data，历史总分约等于三次加权总分的均值
func TestUpdateWithNewMeasurement_EndToEnd(t *testing.T) {
	metrics := &models.QualityMetrics{ComponentName: "nexus"}

	overallSum := 0.0
	for _, v := range []float64{0.5, 0.6, 0.9} {
		dims := makeDimensions(v)
		require.NoError(t, UpdateWithNewMeasurement(metrics, dims))
		overallSum += CalculateOverallQuality(dims).OverallQuality
	}

	assert.Equal(t, uint64(3), metrics.TotalMeasurements)
	assert.NotEqual(t, models.TrendInsufficientData, metrics.QualityTrend)
	assert.InDelta(t, overallSum/3, metrics.HistoricalAverageQuality.OverallQuality, 1e-9)
	assert.Equal(t, "historical_avg_3", metrics.HistoricalAverageQuality.MeasurementID)
}

// TestUpdateWithNewMeasurement_ComponentSpecificMetrics 测试维度明细指标随更新维护
func TestUpdateWithNewMeasurement_ComponentSpecificMetrics(t *testing.T) {
	metrics := &models.QualityMetrics{ComponentName: "bridge"}

	require.NoError(t, UpdateWithNewMeasurement(metrics, makeDimensions(0.6)))
	require.NoError(t, UpdateWithNewMeasurement(metrics, makeDimensions(0.8)))

	entry, ok := metrics.ComponentSpecificMetrics[string(models.CategoryTechnical)]
	require.True(t, ok)
	assert.InDelta(t, 0.8, entry.LatestValue, 1e-9)
	assert.InDelta(t, 0.7, entry.AverageValue, 1e-9)
	assert.Equal(t, uint64(1), entry.BelowThresholdCount)
}
