/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs service/init.go
 */

package api

import (
	"qualityhub-service/api/controllers"
	apimiddleware "qualityhub-service/api/middleware"
	"qualityhub-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API Key鉴权（AUTH_ENABLED=true时生效）
	authMiddleware := apimiddleware.NewApiKeyAuthMiddleware(service.DB)
	r.Use(authMiddleware.Middleware)

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController(service.GlobalEventService)
	r.Get("/sse/{client_name}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/broadcast", eventController.BroadcastEvent)
		r.Get("/history", eventController.GetEventHistory)
		r.Get("/connections", eventController.GetSSEConnectionList)
	})

	// 组件质量跟踪
	r.Route("/quality", func(r chi.Router) {
		qualityController := controllers.NewQualityController(
			service.GlobalMetricsStore,
			service.ProcessMeasurement,
			service.GlobalRateLimiter,
			service.DB,
		)

		r.Get("/components", qualityController.ListComponents)
		r.Route("/components/{component_name}", func(r chi.Router) {
			r.Get("/", qualityController.GetComponentMetrics)
			r.Post("/init", qualityController.InitComponent)
			r.Post("/measurements", qualityController.SubmitMeasurement)
			r.Get("/alerts", qualityController.GetComponentAlerts)
			r.Get("/recommendations", qualityController.GetComponentRecommendations)
			r.Get("/history", qualityController.GetMeasurementHistory)
			r.Get("/snapshots", qualityController.GetSnapshots)
		})

		// 自定义质量规则脚本
		ruleController := controllers.NewRuleController(service.GlobalRuleEngine)
		r.Get("/rules", ruleController.ListRules)
		r.Post("/rules", ruleController.RegisterRule)
		r.Delete("/rules/{name}", ruleController.UnregisterRule)
	})

	// 资源分配台账
	r.Route("/allocations", func(r chi.Router) {
		allocationController := controllers.NewAllocationController(service.GlobalLedger, service.RecordAllocation)

		r.Get("/", allocationController.ListAllocations)
		r.Post("/", allocationController.RecordAllocation)
		r.Post("/validate", allocationController.ValidateRequest)
		r.Get("/{allocation_id}", allocationController.GetAllocation)
	})
}
