/*
 * @module service/quality/tracker
 * @description 质量度量核心计算，提供测量校验、加权总分计算、运行均值更新、趋势分类和告警/建议生成
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 测量校验 -> 计数递增 -> 运行均值更新 -> 总分/置信度重算 -> 趋势分类 -> 建议/告警重建
 * @rules 校验先于一切状态变更，校验失败时聚合状态保持不变
 * @dependencies qualityhub-service/service/models, github.com/google/uuid
 * @refs service/quality/store.go, api/controllers/quality_controller.go
 */

package quality

import (
	"fmt"
	"time"

	"qualityhub-service/service/models"

	"github.com/google/uuid"
)

// 加权总分权重
const (
	weightConsciousness = 0.25
	weightPartnership   = 0.25
	weightBeneficial    = 0.25
	weightTechnical     = 0.15
	weightEcosystem     = 0.10
)

// 趋势与告警阈值
const (
	trendBand              = 0.05 // 趋势判定带宽，严格大于才算变化
	recommendThreshold     = 0.70 // 低于该值生成改进建议
	criticalAlertThreshold = 0.50 // 核心维度低于该值生成Critical告警
	technicalWarnLow       = 0.50 // 技术质量Warning区间下界（含）
	technicalWarnHigh      = 0.60 // 技术质量Warning区间上界（不含）
	confidencePerDimension = 0.20 // 每个非零维度贡献的置信度
)

// 各维度建议的固定预估改进量
var estimatedImprovements = map[models.DimensionCategory]float64{
	models.CategoryTechnical:     0.20,
	models.CategoryConsciousness: 0.25,
	models.CategoryPartnership:   0.25,
	models.CategoryBeneficial:    0.30,
	models.CategoryEcosystem:     0.15,
}

// rawDimension 原始维度的取值访问器，校验、均值和建议生成共用
type rawDimension struct {
	category models.DimensionCategory
	get      func(*models.QualityDimensions) float64
	set      func(*models.QualityDimensions, float64)
}

var rawDimensions = []rawDimension{
	{
		category: models.CategoryTechnical,
		get:      func(d *models.QualityDimensions) float64 { return d.TechnicalQuality },
		set:      func(d *models.QualityDimensions, v float64) { d.TechnicalQuality = v },
	},
	{
		category: models.CategoryConsciousness,
		get:      func(d *models.QualityDimensions) float64 { return d.ConsciousnessCompatibility },
		set:      func(d *models.QualityDimensions, v float64) { d.ConsciousnessCompatibility = v },
	},
	{
		category: models.CategoryPartnership,
		get:      func(d *models.QualityDimensions) float64 { return d.PartnershipQuality },
		set:      func(d *models.QualityDimensions, v float64) { d.PartnershipQuality = v },
	},
	{
		category: models.CategoryBeneficial,
		get:      func(d *models.QualityDimensions) float64 { return d.BeneficialOutcomeAchievement },
		set:      func(d *models.QualityDimensions, v float64) { d.BeneficialOutcomeAchievement = v },
	},
	{
		category: models.CategoryEcosystem,
		get:      func(d *models.QualityDimensions) float64 { return d.EcosystemIntegrationQuality },
		set:      func(d *models.QualityDimensions, v float64) { d.EcosystemIntegrationQuality = v },
	},
}

// ValidateDimensions 校验一次测量
// 检查七个数值字段是否位于[0,1]区间，时间戳是否不晚于当前时间；无任何副作用
func ValidateDimensions(d *models.QualityDimensions) error {
	for _, dim := range rawDimensions {
		if v := dim.get(d); v < 0.0 || v > 1.0 {
			return &models.OutOfRangeError{Field: string(dim.category), Value: v}
		}
	}

	if d.OverallQuality < 0.0 || d.OverallQuality > 1.0 {
		return &models.OutOfRangeError{Field: "overall_quality", Value: d.OverallQuality}
	}
	if d.ConfidenceLevel < 0.0 || d.ConfidenceLevel > 1.0 {
		return &models.OutOfRangeError{Field: "confidence_level", Value: d.ConfidenceLevel}
	}

	if d.MeasurementTimestamp.After(time.Now()) {
		return &models.FutureTimestampError{Timestamp: d.MeasurementTimestamp}
	}

	return nil
}

// CalculateOverallQuality 计算加权总分和置信度
// 纯函数，返回设置了overall_quality和confidence_level的副本
func CalculateOverallQuality(d models.QualityDimensions) models.QualityDimensions {
	overall := weightConsciousness*d.ConsciousnessCompatibility +
		weightPartnership*d.PartnershipQuality +
		weightBeneficial*d.BeneficialOutcomeAchievement +
		weightTechnical*d.TechnicalQuality +
		weightEcosystem*d.EcosystemIntegrationQuality

	if overall < 0.0 {
		overall = 0.0
	}
	if overall > 1.0 {
		overall = 1.0
	}
	d.OverallQuality = overall

	confidence := 0.0
	for _, dim := range rawDimensions {
		if dim.get(&d) > 0.0 {
			confidence += confidencePerDimension
		}
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	d.ConfidenceLevel = confidence

	return d
}

// UpdateWithNewMeasurement 用一次新测量更新聚合指标
// 校验失败时返回错误且metrics保持原状；成功时计数、运行均值、趋势、建议和告警全部重算
func UpdateWithNewMeasurement(metrics *models.QualityMetrics, newDims models.QualityDimensions) error {
	if err := ValidateDimensions(&newDims); err != nil {
		return err
	}

	// 派生字段由服务端计算，覆盖调用方提交的值
	newDims = CalculateOverallQuality(newDims)
	if newDims.MeasurementID == "" {
		newDims.MeasurementID = uuid.New().String()
	}

	metrics.TotalMeasurements++
	n := metrics.TotalMeasurements

	// 五个原始维度的增量均值更新，n==1时直接取新值，避免依赖零初始化的均值
	for _, dim := range rawDimensions {
		newValue := dim.get(&newDims)
		if n == 1 {
			dim.set(&metrics.HistoricalAverageQuality, newValue)
		} else {
			oldAvg := dim.get(&metrics.HistoricalAverageQuality)
			dim.set(&metrics.HistoricalAverageQuality, (oldAvg*float64(n-1)+newValue)/float64(n))
		}
	}

	metrics.HistoricalAverageQuality = CalculateOverallQuality(metrics.HistoricalAverageQuality)
	metrics.HistoricalAverageQuality.MeasurementTimestamp = time.Now()
	metrics.HistoricalAverageQuality.MeasurementID = fmt.Sprintf("historical_avg_%d", n)

	metrics.CurrentQuality = newDims

	metrics.QualityTrend = classifyTrend(
		metrics.CurrentQuality.OverallQuality,
		metrics.HistoricalAverageQuality.OverallQuality,
		n,
	)

	metrics.ImprovementRecommendations = buildRecommendations(&metrics.CurrentQuality)
	metrics.QualityAlerts = buildAlerts(&metrics.CurrentQuality, metrics.QualityTrend)

	updateComponentSpecificMetrics(metrics)

	return nil
}

// classifyTrend 趋势分类
// 测量数不足3时返回insufficient_data；带宽内为stable，需严格超出±0.05才判定变化
func classifyTrend(current, historical float64, n uint64) models.QualityTrend {
	if n < 3 {
		return models.TrendInsufficientData
	}

	switch {
	case current > historical+trendBand:
		return models.TrendImproving
	case current < historical-trendBand:
		return models.TrendDegrading
	default:
		return models.TrendStable
	}
}

// isCoreDimension 是否为三个核心维度之一（兼容性、协作、有益产出）
func isCoreDimension(category models.DimensionCategory) bool {
	switch category {
	case models.CategoryConsciousness, models.CategoryPartnership, models.CategoryBeneficial:
		return true
	default:
		return false
	}
}

// recommendationPriority 维度对应的建议优先级
func recommendationPriority(category models.DimensionCategory) models.RecommendationPriority {
	switch category {
	case models.CategoryConsciousness, models.CategoryPartnership, models.CategoryBeneficial:
		return models.PriorityCritical
	case models.CategoryTechnical:
		return models.PriorityHigh
	default:
		return models.PriorityMedium
	}
}

// 各维度的改进建议文案
var recommendationDescriptions = map[models.DimensionCategory]string{
	models.CategoryTechnical:     "技术质量低于预期，建议检查组件实现和测试覆盖",
	models.CategoryConsciousness: "兼容性评分偏低，建议核对组件与生态协调层的交互契约",
	models.CategoryPartnership:   "协作质量偏低，建议复查组件间协作流程和反馈通路",
	models.CategoryBeneficial:    "有益产出达成度不足，建议重新评估组件的产出目标和度量方式",
	models.CategoryEcosystem:     "生态集成质量有改进空间，建议检查接入规范和集成测试",
}

// buildRecommendations 重建改进建议列表，整体替换旧列表
func buildRecommendations(current *models.QualityDimensions) []models.ImprovementRecommendation {
	recommendations := make([]models.ImprovementRecommendation, 0)
	now := time.Now()

	for _, dim := range rawDimensions {
		value := dim.get(current)
		if value >= recommendThreshold {
			continue
		}

		recommendations = append(recommendations, models.ImprovementRecommendation{
			Category:             dim.category,
			Priority:             recommendationPriority(dim.category),
			Description:          recommendationDescriptions[dim.category],
			CurrentValue:         value,
			EstimatedImprovement: estimatedImprovements[dim.category],
			GeneratedAt:          now,
		})
	}

	return recommendations
}

// buildAlerts 重建告警列表，整体替换旧列表
func buildAlerts(current *models.QualityDimensions, trend models.QualityTrend) []models.QualityAlert {
	alerts := make([]models.QualityAlert, 0)
	now := time.Now()

	for _, dim := range rawDimensions {
		value := dim.get(current)

		if isCoreDimension(dim.category) && value < criticalAlertThreshold {
			alerts = append(alerts, models.QualityAlert{
				ID:                      uuid.New().String(),
				Category:                dim.category,
				Severity:                models.SeverityCritical,
				Message:                 fmt.Sprintf("维度 %s 的评分 %.2f 低于临界阈值 %.2f", dim.category, value, criticalAlertThreshold),
				Value:                   value,
				Threshold:               criticalAlertThreshold,
				RequiresImmediateAction: true,
				TriggeredAt:             now,
			})
		}

		if dim.category == models.CategoryTechnical &&
			value >= technicalWarnLow && value < technicalWarnHigh {
			alerts = append(alerts, models.QualityAlert{
				ID:                      uuid.New().String(),
				Category:                models.CategoryTechnical,
				Severity:                models.SeverityWarning,
				Message:                 fmt.Sprintf("技术质量评分 %.2f 处于警告区间 [%.2f, %.2f)", value, technicalWarnLow, technicalWarnHigh),
				Value:                   value,
				Threshold:               technicalWarnHigh,
				RequiresImmediateAction: false,
				TriggeredAt:             now,
			})
		}
	}

	if trend == models.TrendDegrading {
		alerts = append(alerts, models.QualityAlert{
			ID:                      uuid.New().String(),
			Category:                models.CategoryOverall,
			Severity:                models.SeverityWarning,
			Message:                 "组件整体质量趋势正在下降",
			Value:                   current.OverallQuality,
			Threshold:               0,
			RequiresImmediateAction: false,
			TriggeredAt:             now,
		})
	}

	return alerts
}

// updateComponentSpecificMetrics 更新各维度明细指标
func updateComponentSpecificMetrics(metrics *models.QualityMetrics) {
	if metrics.ComponentSpecificMetrics == nil {
		metrics.ComponentSpecificMetrics = make(map[string]models.ComponentQualityMetrics)
	}

	now := time.Now()
	for _, dim := range rawDimensions {
		key := string(dim.category)
		entry := metrics.ComponentSpecificMetrics[key]
		entry.Category = dim.category
		entry.LatestValue = dim.get(&metrics.CurrentQuality)
		entry.AverageValue = dim.get(&metrics.HistoricalAverageQuality)
		if entry.LatestValue < recommendThreshold {
			entry.BelowThresholdCount++
		}
		entry.LastUpdated = now
		metrics.ComponentSpecificMetrics[key] = entry
	}
}
