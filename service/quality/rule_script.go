/*
 * @module service/quality/rule_script
 * @description 自定义告警规则脚本引擎，基于Yaegi解释执行运维人员注册的Go语法规则脚本
 * @architecture 分层架构 - 业务服务层，脚本按内容哈希缓存编译结果
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 脚本注册 -> 语法校验 -> 测量更新时求值 -> 自定义告警输出
 * @rules 脚本求值失败只记录日志，不影响内置告警生成；自定义告警仅经事件通道分发，不写入聚合指标
 * @dependencies github.com/traefik/yaegi, qualityhub-service/service/models
 * @refs service/quality/store.go, service/event/event_service.go
 */

package quality

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"qualityhub-service/service/models"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// RuleScript 已注册的规则脚本
type RuleScript struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Script       string    `json:"script"`
	RegisteredAt time.Time `json:"registered_at"`
}

// compiledRule 编译后的规则，持有可执行函数
type compiledRule struct {
	fn       func(map[string]interface{}) (interface{}, error)
	compiled time.Time
	hash     string
}

// RuleScriptEngine 规则脚本引擎
type RuleScriptEngine struct {
	mu      sync.RWMutex
	scripts map[string]*RuleScript
	cache   map[string]*compiledRule
}

// NewRuleScriptEngine 创建规则脚本引擎实例
func NewRuleScriptEngine() *RuleScriptEngine {
	return &RuleScriptEngine{
		scripts: make(map[string]*RuleScript),
		cache:   make(map[string]*compiledRule),
	}
}

// Register 注册规则脚本，注册前做语法校验
func (e *RuleScriptEngine) Register(name, description, script string) error {
	if name == "" {
		return fmt.Errorf("规则脚本名称不能为空")
	}
	if err := e.Validate(script); err != nil {
		return fmt.Errorf("规则脚本校验失败: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.scripts[name] = &RuleScript{
		Name:         name,
		Description:  description,
		Script:       script,
		RegisteredAt: time.Now(),
	}
	return nil
}

// Unregister 注销规则脚本
func (e *RuleScriptEngine) Unregister(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.scripts[name]; !exists {
		return fmt.Errorf("规则脚本 %s 不存在", name)
	}
	delete(e.scripts, name)
	return nil
}

// ListScripts 列出所有已注册的规则脚本
func (e *RuleScriptEngine) ListScripts() []*RuleScript {
	e.mu.RLock()
	defer e.mu.RUnlock()

	scripts := make([]*RuleScript, 0, len(e.scripts))
	for _, s := range e.scripts {
		scripts = append(scripts, s)
	}
	return scripts
}

// Evaluate 对一次测量更新求值全部规则脚本，返回自定义告警
// 单个脚本失败只记录日志并跳过，不中断其余脚本
func (e *RuleScriptEngine) Evaluate(ctx context.Context, componentName string, metrics *models.QualityMetrics) []models.QualityAlert {
	e.mu.RLock()
	scripts := make([]*RuleScript, 0, len(e.scripts))
	for _, s := range e.scripts {
		scripts = append(scripts, s)
	}
	e.mu.RUnlock()

	alerts := make([]models.QualityAlert, 0)
	for _, script := range scripts {
		result, err := e.execute(ctx, script.Script, ruleParams(componentName, metrics))
		if err != nil {
			slog.Error("规则脚本执行失败", "script", script.Name, "component", componentName, "error", err)
			continue
		}

		alert, ok := toCustomAlert(script.Name, componentName, result)
		if !ok {
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

// ruleParams 构造注入脚本的参数表
func ruleParams(componentName string, metrics *models.QualityMetrics) map[string]interface{} {
	current := metrics.CurrentQuality
	return map[string]interface{}{
		"component":          componentName,
		"technical":          current.TechnicalQuality,
		"consciousness":      current.ConsciousnessCompatibility,
		"partnership":        current.PartnershipQuality,
		"beneficial":         current.BeneficialOutcomeAchievement,
		"ecosystem":          current.EcosystemIntegrationQuality,
		"overall":            current.OverallQuality,
		"confidence":         current.ConfidenceLevel,
		"historical_overall": metrics.HistoricalAverageQuality.OverallQuality,
		"total_measurements": metrics.TotalMeasurements,
		"trend":              string(metrics.QualityTrend),
	}
}

// toCustomAlert 把脚本返回值转换为自定义告警
// nil表示规则未触发；字符串作为告警消息；map可指定message/severity/requires_immediate_action
func toCustomAlert(scriptName, componentName string, result interface{}) (models.QualityAlert, bool) {
	if result == nil {
		return models.QualityAlert{}, false
	}

	alert := models.QualityAlert{
		ID:          uuid.New().String(),
		Category:    models.CategoryOverall,
		Severity:    models.SeverityWarning,
		TriggeredAt: time.Now(),
	}

	switch v := result.(type) {
	case string:
		if v == "" {
			return models.QualityAlert{}, false
		}
		alert.Message = fmt.Sprintf("[%s@%s] %s", scriptName, componentName, v)
	case map[string]interface{}:
		message := cast.ToString(v["message"])
		if message == "" {
			return models.QualityAlert{}, false
		}
		alert.Message = fmt.Sprintf("[%s@%s] %s", scriptName, componentName, message)
		if severity := cast.ToString(v["severity"]); severity == string(models.SeverityCritical) {
			alert.Severity = models.SeverityCritical
		}
		alert.RequiresImmediateAction = cast.ToBool(v["requires_immediate_action"])
		alert.Value = cast.ToFloat64(v["value"])
		alert.Threshold = cast.ToFloat64(v["threshold"])
	default:
		return models.QualityAlert{}, false
	}

	return alert, true
}

// execute 执行脚本（带参数注入和编译缓存）
func (e *RuleScriptEngine) execute(ctx context.Context, script string, params map[string]interface{}) (interface{}, error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	e.mu.RLock()
	compiled, ok := e.cache[hash]
	e.mu.RUnlock()

	if !ok {
		var err error
		compiled, err = e.compile(script, hash)
		if err != nil {
			return nil, fmt.Errorf("脚本编译失败: %w", err)
		}

		e.mu.Lock()
		e.cache[hash] = compiled
		e.mu.Unlock()
	}

	return compiled.fn(params)
}

// compile 编译脚本为可执行函数
// 脚本必须提供 Run(params map[string]interface{}) (interface{}, error) 作为入口
func (e *RuleScriptEngine) compile(script, hash string) (*compiledRule, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"math"
	"strings"
)

var _ = fmt.Sprintf
var _ = math.Abs
var _ = strings.TrimSpace

func Run(params map[string]interface{}) (interface{}, error) {
	// 脚本内容
%s
}
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("脚本编译失败: %w", err)
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Run 函数: %w", err)
	}

	runFunc, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}

	return &compiledRule{
		fn:       runFunc,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}

// Validate 验证脚本语法（快速校验）
func (e *RuleScriptEngine) Validate(script string) error {
	_, err := e.compile(script, "")
	return err
}
