/*
 * @module service/models/quality_models
 * @description 质量度量核心模型，包含质量维度、聚合指标、告警和改进建议等模型
 * @architecture 数据模型层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 测量提交 -> 校验 -> 运行均值更新 -> 趋势分类 -> 告警/建议生成
 * @rules 所有数值维度必须位于[0,1]区间，违反时返回校验错误而不是静默截断
 * @dependencies time, fmt
 * @refs service/quality/, api/controllers/quality_controller.go
 */

package models

import (
	"fmt"
	"time"
)

// QualityDimensions 一次质量测量，包含五个原始维度和两个派生字段
// overall_quality 和 confidence_level 由服务端计算，调用方提交的值会被覆盖
type QualityDimensions struct {
	TechnicalQuality             float64   `json:"technical_quality"`
	ConsciousnessCompatibility   float64   `json:"consciousness_compatibility"`
	PartnershipQuality           float64   `json:"partnership_quality"`
	BeneficialOutcomeAchievement float64   `json:"beneficial_outcome_achievement"`
	EcosystemIntegrationQuality  float64   `json:"ecosystem_integration_quality"`
	OverallQuality               float64   `json:"overall_quality"`
	ConfidenceLevel              float64   `json:"confidence_level"`
	MeasurementTimestamp         time.Time `json:"measurement_timestamp"`
	MeasurementID                string    `json:"measurement_id"`
}

// QualityTrend 质量趋势分类
type QualityTrend string

const (
	TrendImproving        QualityTrend = "improving"
	TrendStable           QualityTrend = "stable"
	TrendDegrading        QualityTrend = "degrading"
	TrendInsufficientData QualityTrend = "insufficient_data"
)

// DimensionCategory 质量维度类别
type DimensionCategory string

const (
	CategoryTechnical     DimensionCategory = "technical_quality"
	CategoryConsciousness DimensionCategory = "consciousness_compatibility"
	CategoryPartnership   DimensionCategory = "partnership_quality"
	CategoryBeneficial    DimensionCategory = "beneficial_outcome_achievement"
	CategoryEcosystem     DimensionCategory = "ecosystem_integration_quality"
	CategoryOverall       DimensionCategory = "overall"
)

// RecommendationPriority 改进建议优先级
type RecommendationPriority string

const (
	PriorityCritical RecommendationPriority = "critical"
	PriorityHigh     RecommendationPriority = "high"
	PriorityMedium   RecommendationPriority = "medium"
)

// AlertSeverity 告警严重级别
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
)

// ImprovementRecommendation 改进建议
type ImprovementRecommendation struct {
	Category             DimensionCategory      `json:"category"`
	Priority             RecommendationPriority `json:"priority"`
	Description          string                 `json:"description"`
	CurrentValue         float64                `json:"current_value"`
	EstimatedImprovement float64                `json:"estimated_improvement"`
	GeneratedAt          time.Time              `json:"generated_at"`
}

// QualityAlert 质量告警
type QualityAlert struct {
	ID                      string            `json:"id"`
	Category                DimensionCategory `json:"category"`
	Severity                AlertSeverity     `json:"severity"`
	Message                 string            `json:"message"`
	Value                   float64           `json:"value"`
	Threshold               float64           `json:"threshold"`
	RequiresImmediateAction bool              `json:"requires_immediate_action"`
	TriggeredAt             time.Time         `json:"triggered_at"`
}

// ComponentQualityMetrics 组件维度明细指标
type ComponentQualityMetrics struct {
	Category            DimensionCategory `json:"category"`
	LatestValue         float64           `json:"latest_value"`
	AverageValue        float64           `json:"average_value"`
	BelowThresholdCount uint64            `json:"below_threshold_count"` // 低于建议阈值的测量次数
	LastUpdated         time.Time         `json:"last_updated"`
}

// QualityMetrics 组件质量聚合指标，每个被跟踪组件一份
type QualityMetrics struct {
	ComponentName              string                             `json:"component_name"`
	TotalMeasurements          uint64                             `json:"total_measurements"`
	CurrentQuality             QualityDimensions                  `json:"current_quality"`
	HistoricalAverageQuality   QualityDimensions                  `json:"historical_average_quality"`
	QualityTrend               QualityTrend                       `json:"quality_trend"`
	ComponentSpecificMetrics   map[string]ComponentQualityMetrics `json:"component_specific_metrics"`
	ImprovementRecommendations []ImprovementRecommendation        `json:"improvement_recommendations"`
	QualityAlerts              []QualityAlert                     `json:"quality_alerts"`
}

// === 校验错误类型 ===

// OutOfRangeError 数值字段越界错误
type OutOfRangeError struct {
	Field string
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("字段 %s 的值 %g 超出[0,1]范围", e.Field, e.Value)
}

// FutureTimestampError 测量时间戳晚于当前时间错误
type FutureTimestampError struct {
	Timestamp time.Time
}

func (e *FutureTimestampError) Error() string {
	return fmt.Sprintf("测量时间戳 %s 晚于当前时间", e.Timestamp.Format(time.RFC3339))
}
