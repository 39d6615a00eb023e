/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies qualityhub-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"log"

	"qualityhub-service/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 质量测量相关表
	err := db.AutoMigrate(
		&models.QualityMeasurementRecord{},
		&models.QualityMetricsSnapshot{},
	)
	if err != nil {
		return err
	}

	// 资源分配台账相关表
	err = db.AutoMigrate(
		&models.AllocationRecord{},
	)
	if err != nil {
		return err
	}

	// 接入与事件相关表
	err = db.AutoMigrate(
		&models.ApiKey{},
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
