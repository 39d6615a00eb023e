/*
 * @module service/scheduler/snapshot_scheduler
 * @description 质量指标快照调度器，定时把内存聚合指标持久化为快照记录
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 启动调度器 -> cron触发 -> 获取分布式锁 -> 落库快照
 * @rules 多实例部署时同一周期只有持锁实例执行快照
 * @dependencies github.com/robfig/cron/v3, service/distributed_lock, gorm.io/gorm
 * @refs service/init.go, service/quality/store.go
 */

package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"qualityhub-service/service/distributed_lock"
	"qualityhub-service/service/models"
	"qualityhub-service/service/quality"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const snapshotLockKey = "metrics_snapshot"

// SnapshotScheduler 质量指标快照调度器
type SnapshotScheduler struct {
	db               *gorm.DB
	store            *quality.MetricsStore
	cron             *cron.Cron
	spec             string
	ctx              context.Context
	cancel           context.CancelFunc
	schedulerStarted bool
	distributedLock  distributed_lock.DistributedLock
}

// NewSnapshotScheduler 创建快照调度器
// spec为六段cron表达式，默认每十分钟执行一次
func NewSnapshotScheduler(db *gorm.DB, store *quality.MetricsStore, spec string) *SnapshotScheduler {
	if spec == "" {
		spec = "0 */10 * * * *"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SnapshotScheduler{
		db:     db,
		store:  store,
		cron:   cron.New(cron.WithSeconds()),
		spec:   spec,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetDistributedLock 设置分布式锁
func (ss *SnapshotScheduler) SetDistributedLock(lock distributed_lock.DistributedLock) {
	ss.distributedLock = lock
	if lock != nil {
		slog.Info("快照调度器已启用分布式锁")
	}
}

// StartScheduler 启动调度器
func (ss *SnapshotScheduler) StartScheduler() error {
	if ss.schedulerStarted {
		return fmt.Errorf("调度器已经启动")
	}

	if _, err := ss.cron.AddFunc(ss.spec, ss.runSnapshot); err != nil {
		return fmt.Errorf("注册快照任务失败: %w", err)
	}

	ss.cron.Start()
	ss.schedulerStarted = true
	slog.Info("质量指标快照调度器启动完成", "spec", ss.spec)
	return nil
}

// StopScheduler 停止调度器
func (ss *SnapshotScheduler) StopScheduler() {
	if !ss.schedulerStarted {
		return
	}

	ss.cancel()
	ss.cron.Stop()
	ss.schedulerStarted = false
	slog.Info("质量指标快照调度器已停止")
}

// runSnapshot 执行一次快照，配置了分布式锁时在锁保护下执行
func (ss *SnapshotScheduler) runSnapshot() {
	ctx, cancel := context.WithTimeout(ss.ctx, 30*time.Second)
	defer cancel()

	if ss.distributedLock != nil {
		err := distributed_lock.ExecuteWithLock(ctx, ss.distributedLock, snapshotLockKey, time.Minute, func() error {
			return ss.TakeSnapshot()
		})
		if err != nil {
			slog.Error("快照任务执行失败", "error", err)
		}
		return
	}

	if err := ss.TakeSnapshot(); err != nil {
		slog.Error("快照任务执行失败", "error", err)
	}
}

// TakeSnapshot 把当前全部组件的聚合指标写入快照表
func (ss *SnapshotScheduler) TakeSnapshot() error {
	snapshot := ss.store.Snapshot()
	if len(snapshot) == 0 {
		slog.Debug("没有可快照的组件指标")
		return nil
	}

	now := time.Now()
	for componentName, metrics := range snapshot {
		record := &models.QualityMetricsSnapshot{
			ComponentName:     componentName,
			TotalMeasurements: metrics.TotalMeasurements,
			OverallQuality:    metrics.CurrentQuality.OverallQuality,
			HistoricalOverall: metrics.HistoricalAverageQuality.OverallQuality,
			QualityTrend:      string(metrics.QualityTrend),
			Metrics:           metricsToJSONB(metrics),
			SnapshotAt:        now,
		}

		if err := ss.db.Create(record).Error; err != nil {
			return fmt.Errorf("保存组件 %s 的快照失败: %w", componentName, err)
		}
	}

	slog.Info("质量指标快照完成", "components", len(snapshot))
	return nil
}

// metricsToJSONB 把聚合指标转换为JSONB存储
func metricsToJSONB(metrics *models.QualityMetrics) models.JSONB {
	data, err := json.Marshal(metrics)
	if err != nil {
		return nil
	}

	var result models.JSONB
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}
