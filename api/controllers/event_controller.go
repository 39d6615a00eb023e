/*
 * @module api/controllers/event_controller
 * @description 事件管理控制器，提供SSE连接、事件广播、历史事件和连接列表API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies qualityhub-service/service/event, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/event/event_service.go
 */

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"qualityhub-service/service/event"
	"qualityhub-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// EventController 事件管理控制器
type EventController struct {
	eventService *event.EventService
}

// NewEventController 创建事件控制器实例
func NewEventController(eventService *event.EventService) *EventController {
	return &EventController{eventService: eventService}
}

// === SSE连接处理 ===

// HandleSSE 处理SSE连接
// @Summary 建立SSE连接
// @Description 客户端通过此接口建立SSE连接，接收质量告警等实时事件推送
// @Tags 事件管理
// @Param client_name path string true "客户端名"
// @Success 200 {string} string "SSE事件流"
// @Router /sse/{client_name} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	clientName := chi.URLParam(r, "client_name")
	if clientName == "" {
		http.Error(w, "客户端名不能为空", http.StatusBadRequest)
		return
	}

	// 设置SSE响应头
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	// 生成连接ID
	connectionID := uuid.New().String()
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}

	client := c.eventService.AddSSEConnection(clientName, connectionID, clientIP)
	defer c.eventService.RemoveSSEConnection(connectionID)

	// 发送连接成功事件
	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"connection_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		connectionID, time.Now().Format(time.RFC3339))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	for {
		select {
		case evt := <-client.Channel:
			fmt.Fprintf(w, "data: %s\n\n", toJSON(evt))

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// BroadcastEventRequest 广播事件请求
type BroadcastEventRequest struct {
	EventType     string                 `json:"event_type" example:"system_notification"`
	ComponentName string                 `json:"component_name"`
	Data          map[string]interface{} `json:"data"`
}

// BroadcastEvent 广播事件
// @Summary 广播事件
// @Description 向所有SSE连接广播一条事件，同时持久化并通知其他实例
// @Tags 事件管理
// @Accept json
// @Produce json
// @Param request body BroadcastEventRequest true "广播事件请求"
// @Success 200 {object} APIResponse
// @Router /events/broadcast [post]
func (c *EventController) BroadcastEvent(w http.ResponseWriter, r *http.Request) {
	var req BroadcastEventRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if req.EventType == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("事件类型不能为空", nil))
		return
	}

	evt := &models.SSEEvent{
		EventType:     req.EventType,
		ComponentName: req.ComponentName,
		Data:          models.JSONB(req.Data),
		CreatedBy:     "api",
	}

	if err := c.eventService.PublishEvent(evt); err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("广播事件失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("事件广播成功", map[string]interface{}{
		"event_id": evt.ID,
	}))
}

// GetEventHistory 获取历史事件列表
// @Summary 获取历史事件列表
// @Description 分页获取已持久化的事件，支持按组件和事件类型过滤
// @Tags 事件管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param component_name query string false "组件名过滤"
// @Param event_type query string false "事件类型过滤"
// @Success 200 {object} PaginatedResponse
// @Router /events/history [get]
func (c *EventController) GetEventHistory(w http.ResponseWriter, r *http.Request) {
	page, size := parsePageParams(r)
	componentName := r.URL.Query().Get("component_name")
	eventType := r.URL.Query().Get("event_type")

	events, total, err := c.eventService.GetEventHistoryList(page, size, componentName, eventType)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("获取历史事件失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("查询成功", events, total, page, size))
}

// GetSSEConnectionList 获取SSE连接列表
// @Summary 获取SSE连接列表
// @Description 分页获取SSE连接列表，支持按客户端名和连接状态过滤
// @Tags 事件管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param client_name query string false "客户端名过滤"
// @Param is_active query bool false "连接状态过滤"
// @Success 200 {object} PaginatedResponse
// @Router /events/connections [get]
func (c *EventController) GetSSEConnectionList(w http.ResponseWriter, r *http.Request) {
	page, size := parsePageParams(r)
	clientName := r.URL.Query().Get("client_name")

	var isActive *bool
	if isActiveStr := r.URL.Query().Get("is_active"); isActiveStr != "" {
		val := isActiveStr == "true"
		isActive = &val
	}

	connections, total, err := c.eventService.GetSSEConnectionList(page, size, clientName, isActive)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, InternalErrorResponse("获取SSE连接列表失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("查询成功", connections, total, page, size))
}

// parsePageParams 解析分页查询参数
func parsePageParams(r *http.Request) (int, int) {
	page := 1
	size := 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 && s <= 100 {
		size = s
	}
	return page, size
}

// toJSON 序列化为JSON字符串，失败时返回空对象
func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
