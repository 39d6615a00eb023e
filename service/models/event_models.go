/*
 * @module service/models/event_models
 * @description 事件推送相关模型，包含SSE事件和连接记录
 * @architecture 数据模型层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 告警生成 -> 事件落库 -> SSE推送/跨实例广播
 * @rules 事件主键为UUID，创建前钩子自动生成
 * @dependencies gorm.io/gorm, github.com/google/uuid, time
 * @refs service/event/event_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SSEEvent SSE推送事件模型
type SSEEvent struct {
	ID            string    `gorm:"type:uuid;primary_key" json:"id"`
	EventType     string    `gorm:"not null" json:"event_type"` // quality_alert, custom_rule_alert, system_notification
	ComponentName string    `gorm:"not null;index" json:"component_name"`
	Data          JSONB     `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy     string    `gorm:"not null;default:'system'" json:"created_by"`
}

// BeforeCreate 创建前钩子
func (s *SSEEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedBy == "" {
		s.CreatedBy = "system"
	}
	return nil
}

// TableName 指定表名
func (SSEEvent) TableName() string {
	return "sse_events"
}

// SSEConnection SSE连接记录模型
type SSEConnection struct {
	ID           string    `gorm:"type:uuid;primary_key" json:"id"`
	ClientName   string    `gorm:"not null;index" json:"client_name"`
	ConnectionID string    `gorm:"not null;uniqueIndex" json:"connection_id"`
	ClientIP     string    `json:"client_ip"`
	ConnectedAt  time.Time `gorm:"not null" json:"connected_at"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate 创建前钩子
func (s *SSEConnection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (SSEConnection) TableName() string {
	return "sse_connections"
}
