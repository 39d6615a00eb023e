/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、核心服务装配和可选接入通道启动
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs api/routes.go, main.go
 */

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"qualityhub-service/service/allocation"
	"qualityhub-service/service/database"
	"qualityhub-service/service/distributed_lock"
	"qualityhub-service/service/event"
	"qualityhub-service/service/ingest"
	"qualityhub-service/service/metrics"
	"qualityhub-service/service/models"
	"qualityhub-service/service/quality"
	"qualityhub-service/service/rate_limiter"
	"qualityhub-service/service/scheduler"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                      *gorm.DB
	GlobalMetricsStore      *quality.MetricsStore
	GlobalLedger            *allocation.Ledger
	GlobalEventService      *event.EventService
	GlobalRuleEngine        *quality.RuleScriptEngine
	GlobalSnapshotScheduler *scheduler.SnapshotScheduler
	GlobalRateLimiter       *rate_limiter.RedisRateLimiter
	GlobalKafkaConsumer     *ingest.KafkaConsumer
	GlobalMQTTConsumer      *ingest.MQTTConsumer
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	GlobalMetricsStore = quality.NewMetricsStore()
	GlobalLedger = allocation.NewLedger()
	GlobalRuleEngine = quality.NewRuleScriptEngine()
	GlobalEventService = event.NewEventService(DB)

	// 每次更新成功后刷新Prometheus水位指标
	GlobalMetricsStore.AddUpdateListener(func(componentName string, m *models.QualityMetrics) {
		metrics.UpdateQualityGauges(m)
	})

	// Redis可选组件：限流器和快照分布式锁
	var snapshotLock distributed_lock.DistributedLock
	if getEnvWithDefault("REDIS_ENABLED", "false") == "true" {
		if limiter, err := rate_limiter.NewRedisRateLimiter(); err != nil {
			log.Printf("初始化Redis限流器失败: %v", err)
		} else {
			GlobalRateLimiter = limiter
		}

		if lock, err := distributed_lock.NewRedisLock(); err != nil {
			log.Printf("初始化Redis分布式锁失败: %v", err)
		} else {
			snapshotLock = lock
		}
	}

	// 快照调度器
	GlobalSnapshotScheduler = scheduler.NewSnapshotScheduler(DB, GlobalMetricsStore,
		os.Getenv("SNAPSHOT_CRON"))
	GlobalSnapshotScheduler.SetDistributedLock(snapshotLock)
	if err := GlobalSnapshotScheduler.StartScheduler(); err != nil {
		log.Printf("启动快照调度器失败: %v", err)
	}

	initIngestChannels()

	log.Println("服务初始化完成")
}

// initIngestChannels 按环境变量启动可选的Kafka/MQTT测量接入通道
func initIngestChannels() {
	if getEnvWithDefault("KAFKA_ENABLED", "false") == "true" {
		config := &models.KafkaIngestConfig{
			Brokers:        strings.Split(getEnvWithDefault("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID:        getEnvWithDefault("KAFKA_GROUP_ID", "qualityhub-ingest"),
			Topics:         strings.Split(getEnvWithDefault("KAFKA_TOPICS", "quality-measurements"), ","),
			MinBytes:       1,
			MaxBytes:       10e6,
			MaxWait:        time.Second,
			CommitInterval: time.Second,
		}

		GlobalKafkaConsumer = ingest.NewKafkaConsumer(config, ProcessMeasurement)
		if err := GlobalKafkaConsumer.Start(); err != nil {
			log.Printf("启动Kafka测量接入失败: %v", err)
		}
	}

	if getEnvWithDefault("MQTT_ENABLED", "false") == "true" {
		qos := byte(1)
		if v, err := strconv.Atoi(getEnvWithDefault("MQTT_QOS", "1")); err == nil {
			qos = byte(v)
		}

		config := &models.MQTTIngestConfig{
			Broker:       getEnvWithDefault("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:     getEnvWithDefault("MQTT_CLIENT_ID", "qualityhub-ingest"),
			Username:     os.Getenv("MQTT_USERNAME"),
			Password:     os.Getenv("MQTT_PASSWORD"),
			CleanSession: true,
			KeepAlive:    30 * time.Second,
			Topics:       strings.Split(getEnvWithDefault("MQTT_TOPICS", "quality/measurements"), ","),
			QoS:          qos,
		}

		GlobalMQTTConsumer = ingest.NewMQTTConsumer(config, ProcessMeasurement)
		if err := GlobalMQTTConsumer.Start(); err != nil {
			log.Printf("启动MQTT测量接入失败: %v", err)
		}
	}
}

// ProcessMeasurement 处理一次测量提交：更新聚合、落库、规则求值、事件推送
// API控制器和Kafka/MQTT接入通道共用此入口
func ProcessMeasurement(ctx context.Context, componentName string, dims models.QualityDimensions, source string) error {
	updated, err := GlobalMetricsStore.UpdateWithNewMeasurement(componentName, dims)
	if err != nil {
		return err
	}

	// 落库测量记录，失败不回滚内存状态
	record := &models.QualityMeasurementRecord{
		ComponentName:                componentName,
		MeasurementID:                updated.CurrentQuality.MeasurementID,
		TechnicalQuality:             updated.CurrentQuality.TechnicalQuality,
		ConsciousnessCompatibility:   updated.CurrentQuality.ConsciousnessCompatibility,
		PartnershipQuality:           updated.CurrentQuality.PartnershipQuality,
		BeneficialOutcomeAchievement: updated.CurrentQuality.BeneficialOutcomeAchievement,
		EcosystemIntegrationQuality:  updated.CurrentQuality.EcosystemIntegrationQuality,
		OverallQuality:               updated.CurrentQuality.OverallQuality,
		ConfidenceLevel:              updated.CurrentQuality.ConfidenceLevel,
		MeasurementTimestamp:         updated.CurrentQuality.MeasurementTimestamp,
		Source:                       source,
	}
	if err := DB.Create(record).Error; err != nil {
		log.Printf("保存测量记录失败: component=%s, error=%v", componentName, err)
	}

	// 内置规则告警推送
	GlobalEventService.PublishQualityAlerts(componentName, updated.QualityAlerts)

	// 自定义规则脚本求值，命中的告警单独推送
	customAlerts := GlobalRuleEngine.Evaluate(ctx, componentName, updated)
	for range customAlerts {
		metrics.RecordRuleEvaluation("triggered")
	}
	if len(customAlerts) > 0 {
		GlobalEventService.PublishEvent(&models.SSEEvent{
			EventType:     "custom_rule_alert",
			ComponentName: componentName,
			Data:          models.JSONB{"alerts": customAlerts},
		})
	}

	return nil
}

// RecordAllocation 登记一对分配请求响应并异步落库
func RecordAllocation(request *models.ResourceAllocationRequest, response *models.ResourceAllocationResponse) error {
	if err := GlobalLedger.RecordAllocation(request, response); err != nil {
		return err
	}

	record := &models.AllocationRecord{
		AllocationID:  response.AllocationID,
		RequestID:     request.RequestID,
		ComponentName: request.ComponentName,
		Priority:      string(request.Priority),
		Request:       toJSONB(request),
		Response:      toJSONB(response),
	}
	if err := DB.Create(record).Error; err != nil {
		// 重复登记时台账内存已有同样条目，唯一索引冲突是预期行为
		log.Printf("保存分配记录失败: allocation_id=%s, error=%v", response.AllocationID, err)
	}

	return nil
}

// toJSONB 把任意结构序列化为JSONB
func toJSONB(v interface{}) models.JSONB {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var result models.JSONB
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}
