/*
 * @module service/models/record_models
 * @description 持久化记录模型，包含质量测量记录、指标快照、分配台账记录和API密钥
 * @architecture 数据模型层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 内存核心为权威状态，持久化为异步落库
 * @rules 主键为UUID，创建前钩子自动生成
 * @dependencies gorm.io/gorm, github.com/google/uuid, time
 * @refs service/database/migrate.go, service/scheduler/snapshot_scheduler.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QualityMeasurementRecord 质量测量落库记录
type QualityMeasurementRecord struct {
	ID                           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ComponentName                string    `gorm:"type:varchar(100);not null;index" json:"component_name"`
	MeasurementID                string    `gorm:"type:varchar(100);not null;index" json:"measurement_id"`
	TechnicalQuality             float64   `json:"technical_quality"`
	ConsciousnessCompatibility   float64   `json:"consciousness_compatibility"`
	PartnershipQuality           float64   `json:"partnership_quality"`
	BeneficialOutcomeAchievement float64   `json:"beneficial_outcome_achievement"`
	EcosystemIntegrationQuality  float64   `json:"ecosystem_integration_quality"`
	OverallQuality               float64   `json:"overall_quality"`
	ConfidenceLevel              float64   `json:"confidence_level"`
	MeasurementTimestamp         time.Time `gorm:"not null;index" json:"measurement_timestamp"`
	Source                       string    `gorm:"type:varchar(30);default:'api'" json:"source"` // api, kafka, mqtt
	CreatedAt                    time.Time `json:"created_at"`
}

// TableName 指定表名
func (QualityMeasurementRecord) TableName() string {
	return "quality_measurement_records"
}

// BeforeCreate 创建前钩子
func (q *QualityMeasurementRecord) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// QualityMetricsSnapshot 质量聚合指标定时快照
type QualityMetricsSnapshot struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ComponentName     string    `gorm:"type:varchar(100);not null;index" json:"component_name"`
	TotalMeasurements uint64    `json:"total_measurements"`
	OverallQuality    float64   `json:"overall_quality"`
	HistoricalOverall float64   `json:"historical_overall"`
	QualityTrend      string    `gorm:"type:varchar(30)" json:"quality_trend"`
	Metrics           JSONB     `gorm:"type:jsonb" json:"metrics"` // 完整聚合指标
	SnapshotAt        time.Time `gorm:"not null;index" json:"snapshot_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName 指定表名
func (QualityMetricsSnapshot) TableName() string {
	return "quality_metrics_snapshots"
}

// BeforeCreate 创建前钩子
func (q *QualityMetricsSnapshot) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// AllocationRecord 资源分配台账落库记录
type AllocationRecord struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AllocationID  string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"allocation_id"`
	RequestID     string    `gorm:"type:varchar(100);not null;index" json:"request_id"`
	ComponentName string    `gorm:"type:varchar(100);index" json:"component_name"`
	Priority      string    `gorm:"type:varchar(30)" json:"priority"`
	Request       JSONB     `gorm:"type:jsonb;not null" json:"request"`
	Response      JSONB     `gorm:"type:jsonb;not null" json:"response"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (AllocationRecord) TableName() string {
	return "allocation_records"
}

// BeforeCreate 创建前钩子
func (a *AllocationRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// ApiKey API密钥模型，密钥明文不落库，仅保存bcrypt哈希
type ApiKey struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(100);not null" json:"name"`
	KeyHash    string     `gorm:"type:varchar(100);not null" json:"-"`
	IsEnabled  bool       `gorm:"not null;default:true" json:"is_enabled"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName 指定表名
func (ApiKey) TableName() string {
	return "api_keys"
}

// BeforeCreate 创建前钩子
func (a *ApiKey) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
