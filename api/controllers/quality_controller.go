/*
 * @module api/controllers/quality_controller
 * @description 组件质量控制器，提供测量提交、聚合指标查询、历史记录和快照查询API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow HTTP请求 -> 参数校验 -> 业务逻辑处理 -> 响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies qualityhub-service/service/quality, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/init.go
 */

package controllers

import (
	"context"
	"errors"
	"net/http"

	"qualityhub-service/service/metrics"
	"qualityhub-service/service/models"
	"qualityhub-service/service/quality"
	"qualityhub-service/service/rate_limiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// MeasurementProcessor 测量处理入口，由服务层注入
type MeasurementProcessor func(ctx context.Context, componentName string, dims models.QualityDimensions, source string) error

// 测量上报限流参数
const (
	measurementRateWindow    = 60  // 秒
	globalMeasurementLimit   = 600 // 每窗口全局上限
	perComponentMeasureLimit = 120 // 每窗口单组件上限
)

// QualityController 组件质量控制器
type QualityController struct {
	store     *quality.MetricsStore
	processor MeasurementProcessor
	limiter   *rate_limiter.RedisRateLimiter
	db        *gorm.DB
}

// NewQualityController 创建组件质量控制器实例
func NewQualityController(store *quality.MetricsStore, processor MeasurementProcessor, limiter *rate_limiter.RedisRateLimiter, db *gorm.DB) *QualityController {
	return &QualityController{
		store:     store,
		processor: processor,
		limiter:   limiter,
		db:        db,
	}
}

// SubmitMeasurement 提交组件质量测量
// @Summary 提交质量测量
// @Description 提交一次组件质量测量，服务端重算总分和置信度并更新聚合指标
// @Tags 质量跟踪
// @Accept json
// @Produce json
// @Param component_name path string true "组件名"
// @Param measurement body models.QualityDimensions true "测量数据"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Router /quality/components/{component_name}/measurements [post]
func (c *QualityController) SubmitMeasurement(w http.ResponseWriter, r *http.Request) {
	componentName := chi.URLParam(r, "component_name")
	if componentName == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("组件名不能为空", nil))
		return
	}

	if !c.allowMeasurement(r.Context(), componentName, w, r) {
		return
	}

	var dims models.QualityDimensions
	if err := render.DecodeJSON(r.Body, &dims); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	if err := c.processor(r.Context(), componentName, dims, "api"); err != nil {
		metrics.RecordMeasurement(componentName, "api", "rejected")

		var rangeErr *models.OutOfRangeError
		var tsErr *models.FutureTimestampError
		if errors.As(err, &rangeErr) || errors.As(err, &tsErr) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, BadRequestResponse("测量数据校验失败", err))
			return
		}

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("处理测量失败", err))
		return
	}

	metrics.RecordMeasurement(componentName, "api", "accepted")

	updated, _ := c.store.GetMetrics(componentName)
	render.JSON(w, r, SuccessResponse("测量已记录", updated))
}

// allowMeasurement 测量上报限流检查，未配置限流器时直接放行
func (c *QualityController) allowMeasurement(ctx context.Context, componentName string, w http.ResponseWriter, r *http.Request) bool {
	if c.limiter == nil {
		return true
	}

	result, err := c.limiter.CheckRateLimit(ctx, []rate_limiter.RateLimitRule{
		{Type: rate_limiter.LimitTypeComponent, TargetID: componentName, TimeWindow: measurementRateWindow, MaxRequests: perComponentMeasureLimit},
		{Type: rate_limiter.LimitTypeGlobal, TimeWindow: measurementRateWindow, MaxRequests: globalMeasurementLimit},
	})
	if err != nil {
		// 限流检查故障时放行，不阻塞测量上报
		return true
	}

	if !result.Allowed {
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, TooManyRequestsResponse(result.Message, nil))
		return false
	}
	return true
}

// InitComponent 初始化组件质量档案
// @Summary 初始化组件
// @Description 为组件建立零初始化的质量档案，已存在时返回现有档案
// @Tags 质量跟踪
// @Produce json
// @Param component_name path string true "组件名"
// @Success 200 {object} APIResponse
// @Router /quality/components/{component_name}/init [post]
func (c *QualityController) InitComponent(w http.ResponseWriter, r *http.Request) {
	componentName := chi.URLParam(r, "component_name")
	if componentName == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("组件名不能为空", nil))
		return
	}

	metricsRecord := c.store.NewZeroInitialized(componentName)
	render.JSON(w, r, SuccessResponse("组件质量档案已就绪", metricsRecord))
}

// GetComponentMetrics 查询组件聚合指标
// @Summary 查询组件质量指标
// @Description 返回组件的当前测量、历史均值、趋势、建议和告警
// @Tags 质量跟踪
// @Produce json
// @Param component_name path string true "组件名"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /quality/components/{component_name} [get]
func (c *QualityController) GetComponentMetrics(w http.ResponseWriter, r *http.Request) {
	componentName := chi.URLParam(r, "component_name")

	metricsRecord, ok := c.store.GetMetrics(componentName)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, NotFoundResponse("组件未被跟踪", nil))
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", metricsRecord))
}

// GetComponentAlerts 查询组件当前告警列表
// @Summary 查询组件质量告警
// @Tags 质量跟踪
// @Produce json
// @Param component_name path string true "组件名"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /quality/components/{component_name}/alerts [get]
func (c *QualityController) GetComponentAlerts(w http.ResponseWriter, r *http.Request) {
	componentName := chi.URLParam(r, "component_name")

	metricsRecord, ok := c.store.GetMetrics(componentName)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, NotFoundResponse("组件未被跟踪", nil))
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", metricsRecord.QualityAlerts))
}

// GetComponentRecommendations 查询组件当前改进建议列表
// @Summary 查询组件改进建议
// @Tags 质量跟踪
// @Produce json
// @Param component_name path string true "组件名"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /quality/components/{component_name}/recommendations [get]
func (c *QualityController) GetComponentRecommendations(w http.ResponseWriter, r *http.Request) {
	componentName := chi.URLParam(r, "component_name")

	metricsRecord, ok := c.store.GetMetrics(componentName)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, NotFoundResponse("组件未被跟踪", nil))
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", metricsRecord.ImprovementRecommendations))
}

// ListComponents 列出全部被跟踪组件
// @Summary 列出被跟踪组件
// @Tags 质量跟踪
// @Produce json
// @Success 200 {object} APIResponse
// @Router /quality/components [get]
func (c *QualityController) ListComponents(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("查询成功", c.store.ListComponents()))
}

// GetMeasurementHistory 分页查询组件测量历史
// @Summary 查询测量历史
// @Tags 质量跟踪
// @Produce json
// @Param component_name path string true "组件名"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse
// @Router /quality/components/{component_name}/history [get]
func (c *QualityController) GetMeasurementHistory(w http.ResponseWriter, r *http.Request) {
	componentName := chi.URLParam(r, "component_name")
	page := cast.ToInt(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size := cast.ToInt(r.URL.Query().Get("size"))
	if size < 1 || size > 100 {
		size = 20
	}

	var records []models.QualityMeasurementRecord
	var total int64

	query := c.db.Model(&models.QualityMeasurementRecord{}).
		Where("component_name = ?", componentName)
	if err := query.Count(&total).Error; err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("查询测量历史失败", err))
		return
	}

	err := query.Order("measurement_timestamp DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&records).Error
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("查询测量历史失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("查询成功", records, total, page, size))
}

// GetSnapshots 分页查询组件指标快照
// @Summary 查询指标快照
// @Tags 质量跟踪
// @Produce json
// @Param component_name path string true "组件名"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse
// @Router /quality/components/{component_name}/snapshots [get]
func (c *QualityController) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	componentName := chi.URLParam(r, "component_name")
	page := cast.ToInt(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size := cast.ToInt(r.URL.Query().Get("size"))
	if size < 1 || size > 100 {
		size = 20
	}

	var snapshots []models.QualityMetricsSnapshot
	var total int64

	query := c.db.Model(&models.QualityMetricsSnapshot{}).
		Where("component_name = ?", componentName)
	if err := query.Count(&total).Error; err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("查询快照失败", err))
		return
	}

	err := query.Order("snapshot_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&snapshots).Error
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("查询快照失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("查询成功", snapshots, total, page, size))
}
