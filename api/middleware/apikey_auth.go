/*
 * @module api/middleware/apikey_auth
 * @description API Key鉴权中间件，验证请求携带的API Key有效性
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow Key提取 -> bcrypt比对 -> 上下文注入 -> 下一个处理器
 * @rules 统一鉴权、安全验证、错误处理；AUTH_ENABLED=false时整体旁路
 * @dependencies gorm.io/gorm, golang.org/x/crypto/bcrypt, github.com/go-chi/render
 * @refs api/routes.go, service/models/record_models.go
 */

package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"qualityhub-service/service/models"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ContextKey 上下文键类型
type ContextKey string

// ApiKeyNameKey 通过鉴权的API Key名称在上下文中的键
const ApiKeyNameKey ContextKey = "api_key_name"

// ApiKeyAuthMiddleware API Key认证中间件
type ApiKeyAuthMiddleware struct {
	db      *gorm.DB
	enabled bool
	// 已验证Key的缓存，避免每个请求都做bcrypt比对
	cache      map[string]*cacheEntry
	cacheMutex sync.RWMutex
	cacheTTL   time.Duration
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// cacheEntry 缓存条目
type cacheEntry struct {
	keyName   string
	expiresAt time.Time
}

// NewApiKeyAuthMiddleware 创建API Key认证中间件实例
func NewApiKeyAuthMiddleware(db *gorm.DB) *ApiKeyAuthMiddleware {
	return &ApiKeyAuthMiddleware{
		db:       db,
		enabled:  os.Getenv("AUTH_ENABLED") == "true",
		cache:    make(map[string]*cacheEntry),
		cacheTTL: 5 * time.Minute,
		whitelistPaths: []string{
			"/health",  // 健康检查
			"/ready",   // 就绪检查
			"/metrics", // Prometheus指标
			"/swagger", // Swagger文档
			"/sse",     // SSE连接由前端直连，EventSource无法携带自定义头
		},
	}
}

// AddWhitelistPath 添加白名单路径
func (m *ApiKeyAuthMiddleware) AddWhitelistPath(path string) {
	m.whitelistPaths = append(m.whitelistPaths, path)
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *ApiKeyAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		// 支持前缀匹配
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 认证中间件处理函数
func (m *ApiKeyAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled || m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := extractApiKey(r)
		if apiKey == "" {
			m.respondUnauthorized(w, r, "缺少API Key")
			return
		}

		// 先检查缓存
		if keyName := m.getFromCache(apiKey); keyName != "" {
			ctx := context.WithValue(r.Context(), ApiKeyNameKey, keyName)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		keyName, err := m.verifyApiKey(apiKey)
		if err != nil {
			m.respondUnauthorized(w, r, "API Key无效")
			return
		}

		m.saveToCache(apiKey, keyName)

		ctx := context.WithValue(r.Context(), ApiKeyNameKey, keyName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractApiKey 从请求头提取API Key，支持X-API-Key和Bearer两种形式
func extractApiKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// verifyApiKey 与数据库中启用的Key逐个做bcrypt比对
func (m *ApiKeyAuthMiddleware) verifyApiKey(apiKey string) (string, error) {
	var keys []models.ApiKey
	if err := m.db.Where("is_enabled = ?", true).Find(&keys).Error; err != nil {
		return "", err
	}

	for i := range keys {
		if bcrypt.CompareHashAndPassword([]byte(keys[i].KeyHash), []byte(apiKey)) == nil {
			now := time.Now()
			m.db.Model(&keys[i]).Update("last_used_at", &now)
			return keys[i].Name, nil
		}
	}

	return "", bcrypt.ErrMismatchedHashAndPassword
}

// getFromCache 读取缓存中的验证结果
func (m *ApiKeyAuthMiddleware) getFromCache(apiKey string) string {
	m.cacheMutex.RLock()
	defer m.cacheMutex.RUnlock()

	entry, ok := m.cache[apiKey]
	if !ok || time.Now().After(entry.expiresAt) {
		return ""
	}
	return entry.keyName
}

// saveToCache 保存验证结果到缓存
func (m *ApiKeyAuthMiddleware) saveToCache(apiKey, keyName string) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()

	m.cache[apiKey] = &cacheEntry{
		keyName:   keyName,
		expiresAt: time.Now().Add(m.cacheTTL),
	}
}

// respondUnauthorized 返回401响应
func (m *ApiKeyAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusUnauthorized,
		"msg":    msg,
	})
}
