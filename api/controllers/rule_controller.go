/*
 * @module api/controllers/rule_controller
 * @description 自定义质量规则脚本管理控制器，提供规则注册、注销和列表API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow HTTP请求 -> 脚本校验 -> 规则引擎注册 -> 响应返回
 * @rules 注册前先编译校验脚本，非法脚本直接拒绝
 * @dependencies qualityhub-service/service/quality, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/quality/rule_script.go
 */

package controllers

import (
	"net/http"
	"strings"

	"qualityhub-service/service/quality"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RuleController 质量规则脚本管理控制器
type RuleController struct {
	engine *quality.RuleScriptEngine
}

// NewRuleController 创建规则控制器实例
func NewRuleController(engine *quality.RuleScriptEngine) *RuleController {
	return &RuleController{engine: engine}
}

// RuleScriptRequest 规则脚本注册请求
type RuleScriptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Script      string `json:"script"`
}

// RegisterRule 注册规则脚本
// @Summary 注册质量规则脚本
// @Description 注册一段规则脚本，每次测量更新后对组件指标求值并生成告警
// @Tags 质量规则
// @Accept json
// @Produce json
// @Param rule body RuleScriptRequest true "规则脚本"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /quality/rules [post]
func (c *RuleController) RegisterRule(w http.ResponseWriter, r *http.Request) {
	var req RuleScriptRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.Script) == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("规则名和脚本内容不能为空", nil))
		return
	}

	if err := c.engine.Register(req.Name, req.Description, req.Script); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("规则脚本注册失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("规则脚本已注册", map[string]string{"name": req.Name}))
}

// UnregisterRule 注销规则脚本
// @Summary 注销质量规则脚本
// @Tags 质量规则
// @Produce json
// @Param name path string true "规则名"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /quality/rules/{name} [delete]
func (c *RuleController) UnregisterRule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := c.engine.Unregister(name); err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, NotFoundResponse("规则脚本不存在", err))
		return
	}

	render.JSON(w, r, SuccessResponse("规则脚本已注销", nil))
}

// ListRules 列出已注册规则脚本
// @Summary 列出质量规则脚本
// @Tags 质量规则
// @Produce json
// @Success 200 {object} APIResponse
// @Router /quality/rules [get]
func (c *RuleController) ListRules(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("查询成功", c.engine.ListScripts()))
}
