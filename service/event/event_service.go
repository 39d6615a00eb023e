/*
 * @module service/event/event_service
 * @description 事件推送服务，提供SSE连接管理和基于PostgreSQL NOTIFY的跨实例告警广播
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 告警生成 -> 事件落库 -> pg_notify广播 -> 各实例推送到本地SSE客户端
 * @rules 事件先落库再广播，推送队列满时丢弃该连接的事件而不阻塞
 * @dependencies qualityhub-service/service/models, gorm.io/gorm, github.com/lib/pq
 * @refs api/controllers/event_controller.go, api/controllers/quality_controller.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"qualityhub-service/service/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// 跨实例广播使用的NOTIFY通道
const notifyChannel = "qualityhub_events"

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID         string
	ClientName string
	Channel    chan *models.SSEEvent
	Done       chan struct{}
	ClientIP   string
}

// notifyPayload pg_notify载荷，Origin用于过滤本实例发出的通知
type notifyPayload struct {
	Origin string           `json:"origin"`
	Event  *models.SSEEvent `json:"event"`
}

// EventService 事件推送服务
type EventService struct {
	db          *gorm.DB
	connections map[string]*SSEClient // connectionID -> client
	mu          sync.RWMutex
	dbListener  *pq.Listener
	instanceID  string
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewEventService 创建事件服务实例并启动数据库监听
func NewEventService(db *gorm.DB) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	hostname, _ := os.Hostname()
	service := &EventService{
		db:          db,
		connections: make(map[string]*SSEClient),
		instanceID:  fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.New().String()[:8]),
		ctx:         ctx,
		cancel:      cancel,
	}

	go service.startDBListener()
	go service.startConnectionJanitor()

	return service
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (s *EventService) AddSSEConnection(clientName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	client := &SSEClient{
		ID:         connectionID,
		ClientName: clientName,
		Channel:    make(chan *models.SSEEvent, 100), // 缓冲100个事件
		Done:       make(chan struct{}),
		ClientIP:   clientIP,
	}
	s.connections[connectionID] = client

	if s.db != nil {
		s.db.Create(&models.SSEConnection{
			ClientName:   clientName,
			ConnectionID: connectionID,
			ClientIP:     clientIP,
			ConnectedAt:  time.Now(),
			IsActive:     true,
		})
	}

	log.Printf("SSE连接已建立: 客户端=%s, 连接ID=%s, IP=%s", clientName, connectionID, clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *EventService) RemoveSSEConnection(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, exists := s.connections[connectionID]
	if !exists {
		return
	}

	close(client.Done)
	delete(s.connections, connectionID)

	if s.db != nil {
		s.db.Model(&models.SSEConnection{}).
			Where("connection_id = ?", connectionID).
			Update("is_active", false)
	}

	log.Printf("SSE连接已断开: 客户端=%s, 连接ID=%s", client.ClientName, connectionID)
}

// === 事件发布 ===

// PublishQualityAlerts 把一个组件的告警列表作为事件发布
func (s *EventService) PublishQualityAlerts(componentName string, alerts []models.QualityAlert) {
	if len(alerts) == 0 {
		return
	}

	event := &models.SSEEvent{
		EventType:     "quality_alert",
		ComponentName: componentName,
		Data:          models.JSONB{"alerts": alerts},
		CreatedAt:     time.Now(),
	}
	if err := s.PublishEvent(event); err != nil {
		log.Printf("发布告警事件失败: %v", err)
	}
}

// PublishEvent 发布事件：落库、跨实例广播、推送本地客户端
func (s *EventService) PublishEvent(event *models.SSEEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if s.db != nil {
		if err := s.db.Create(event).Error; err != nil {
			return fmt.Errorf("保存事件失败: %w", err)
		}

		payload, err := json.Marshal(notifyPayload{Origin: s.instanceID, Event: event})
		if err == nil {
			if notifyErr := s.db.Exec("SELECT pg_notify(?, ?)", notifyChannel, string(payload)).Error; notifyErr != nil {
				log.Printf("跨实例广播失败: %v", notifyErr)
			}
		}
	}

	s.broadcastLocal(event)
	return nil
}

// broadcastLocal 把事件推送到本实例的全部SSE连接
func (s *EventService) broadcastLocal(event *models.SSEEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.connections {
		select {
		case client.Channel <- event:
		default:
			log.Printf("连接 %s 事件队列已满，跳过推送", client.ID)
		}
	}
}

// === 数据库监听 ===

// startDBListener 启动PostgreSQL通知监听，接收其他实例发布的事件
func (s *EventService) startDBListener() {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	s.dbListener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("PostgreSQL监听器事件: %v, 错误: %v", ev, err)
		}
	})

	if err := s.dbListener.Listen(notifyChannel); err != nil {
		log.Printf("监听数据库通知失败: %v", err)
		return
	}

	log.Println("事件广播监听器已启动")

	for {
		select {
		case notification := <-s.dbListener.Notify:
			if notification != nil {
				s.handleDBNotification(notification)
			}
		case <-s.ctx.Done():
			log.Println("事件广播监听器已停止")
			return
		}
	}
}

// handleDBNotification 处理跨实例通知，忽略本实例发出的
func (s *EventService) handleDBNotification(notification *pq.Notification) {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(notification.Extra), &payload); err != nil {
		log.Printf("解析事件通知失败: %v", err)
		return
	}

	if payload.Origin == s.instanceID || payload.Event == nil {
		return
	}

	s.broadcastLocal(payload.Event)
}

// startConnectionJanitor 定期清理已断开的连接
func (s *EventService) startConnectionJanitor() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupInactiveConnections()
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupInactiveConnections 清理不活跃的连接
func (s *EventService) cleanupInactiveConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for connectionID, client := range s.connections {
		select {
		case <-client.Done:
			delete(s.connections, connectionID)
			log.Printf("清理已断开的连接: %s", connectionID)
		default:
		}
	}
}

// ConnectionCount 当前活跃SSE连接数
func (s *EventService) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Stop 停止事件服务
func (s *EventService) Stop() {
	s.cancel()

	if s.dbListener != nil {
		s.dbListener.Close()
	}

	s.mu.Lock()
	for _, client := range s.connections {
		close(client.Done)
	}
	s.connections = make(map[string]*SSEClient)
	s.mu.Unlock()

	log.Println("事件服务已停止")
}

// GetEventHistoryList 分页查询事件历史
func (s *EventService) GetEventHistoryList(page, pageSize int, componentName, eventType string) ([]models.SSEEvent, int64, error) {
	var events []models.SSEEvent
	var total int64

	query := s.db.Model(&models.SSEEvent{})
	if componentName != "" {
		query = query.Where("component_name = ?", componentName)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&events).Error

	return events, total, err
}

// GetSSEConnectionList 分页查询SSE连接记录
func (s *EventService) GetSSEConnectionList(page, pageSize int, clientName string, isActive *bool) ([]models.SSEConnection, int64, error) {
	var connections []models.SSEConnection
	var total int64

	query := s.db.Model(&models.SSEConnection{})
	if clientName != "" {
		query = query.Where("client_name = ?", clientName)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("connected_at DESC").
		Offset(offset).Limit(pageSize).Find(&connections).Error

	return connections, total, err
}
