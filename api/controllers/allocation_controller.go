/*
 * @module api/controllers/allocation_controller
 * @description 资源分配台账控制器，提供分配记录、查询和请求校验API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow HTTP请求 -> 请求校验 -> 台账记录 -> 响应返回
 * @rules 校验失败返回400，allocation_id冲突返回409，重复提交幂等返回成功
 * @dependencies qualityhub-service/service/allocation, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go, service/allocation/ledger.go
 */

package controllers

import (
	"errors"
	"net/http"

	"qualityhub-service/service/allocation"
	"qualityhub-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// AllocationRecorder 分配记录入口，由服务层注入
type AllocationRecorder func(request *models.ResourceAllocationRequest, response *models.ResourceAllocationResponse) error

// AllocationController 资源分配台账控制器
type AllocationController struct {
	ledger   *allocation.Ledger
	recorder AllocationRecorder
}

// NewAllocationController 创建资源分配控制器实例
func NewAllocationController(ledger *allocation.Ledger, recorder AllocationRecorder) *AllocationController {
	return &AllocationController{ledger: ledger, recorder: recorder}
}

// AllocationRecordRequest 分配记录请求体
type AllocationRecordRequest struct {
	Request  *models.ResourceAllocationRequest  `json:"request"`
	Response *models.ResourceAllocationResponse `json:"response"`
}

// RecordAllocation 记录一次资源分配
// @Summary 记录资源分配
// @Description 校验分配请求并把请求/响应对写入台账，重复提交幂等
// @Tags 资源分配
// @Accept json
// @Produce json
// @Param allocation body AllocationRecordRequest true "分配请求与响应"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /allocations [post]
func (c *AllocationController) RecordAllocation(w http.ResponseWriter, r *http.Request) {
	var body AllocationRecordRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if body.Request == nil || body.Response == nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("request和response均不能为空", nil))
		return
	}

	if err := c.recorder(body.Request, body.Response); err != nil {
		var conflictErr *models.AllocationIDConflictError
		if errors.As(err, &conflictErr) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, ConflictResponse("分配记录冲突", err))
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("分配请求校验失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("分配已记录", map[string]string{
		"allocation_id": body.Response.AllocationID,
	}))
}

// ValidateRequest 校验分配请求
// @Summary 校验资源分配请求
// @Description 仅校验分配请求合法性，不写入台账
// @Tags 资源分配
// @Accept json
// @Produce json
// @Param request body models.ResourceAllocationRequest true "分配请求"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /allocations/validate [post]
func (c *AllocationController) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	var request models.ResourceAllocationRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	if err := c.ledger.ValidateRequest(&request); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, BadRequestResponse("分配请求校验失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("校验通过", nil))
}

// GetAllocation 按allocation_id查询分配记录
// @Summary 查询分配记录
// @Tags 资源分配
// @Produce json
// @Param allocation_id path string true "分配ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /allocations/{allocation_id} [get]
func (c *AllocationController) GetAllocation(w http.ResponseWriter, r *http.Request) {
	allocationID := chi.URLParam(r, "allocation_id")

	request, response, ok := c.ledger.GetAllocation(allocationID)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, NotFoundResponse("分配记录不存在", nil))
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", map[string]interface{}{
		"request":  request,
		"response": response,
	}))
}

// ListAllocations 列出全部分配ID
// @Summary 列出分配记录ID
// @Tags 资源分配
// @Produce json
// @Success 200 {object} APIResponse
// @Router /allocations [get]
func (c *AllocationController) ListAllocations(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("查询成功", map[string]interface{}{
		"allocation_ids": c.ledger.ListAllocationIDs(),
		"total":          c.ledger.Size(),
	}))
}
