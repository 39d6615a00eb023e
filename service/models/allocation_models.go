/*
 * @module service/models/allocation_models
 * @description 资源分配数据模型，包含分配请求、分配响应、资源需求和优先级定义
 * @architecture 数据模型层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 请求校验 -> 分配记录 -> 台账查询
 * @rules 分配需求的最小/期望/最大数量必须保持有序，优先级必须为已定义的枚举值
 * @dependencies time, fmt
 * @refs service/allocation/, api/controllers/allocation_controller.go
 */

package models

import (
	"fmt"
	"time"
)

// AllocationPriority 分配优先级
type AllocationPriority string

const (
	AllocationPriorityLow                   AllocationPriority = "low"
	AllocationPriorityNormal                AllocationPriority = "normal"
	AllocationPriorityHigh                  AllocationPriority = "high"
	AllocationPriorityCritical              AllocationPriority = "critical"
	AllocationPriorityConsciousnessCritical AllocationPriority = "consciousness_critical"
)

// 优先级序，数值越大优先级越高，consciousness_critical 为最高级
var allocationPriorityRank = map[AllocationPriority]int{
	AllocationPriorityLow:                   1,
	AllocationPriorityNormal:                2,
	AllocationPriorityHigh:                  3,
	AllocationPriorityCritical:              4,
	AllocationPriorityConsciousnessCritical: 5,
}

// IsValid 检查优先级是否为已定义的枚举值
func (p AllocationPriority) IsValid() bool {
	_, ok := allocationPriorityRank[p]
	return ok
}

// Rank 返回优先级序值，未定义的优先级返回0
func (p AllocationPriority) Rank() int {
	return allocationPriorityRank[p]
}

// Compare 比较两个优先级，p高于other返回正数，相等返回0
func (p AllocationPriority) Compare(other AllocationPriority) int {
	return p.Rank() - other.Rank()
}

// ResourceAmount 资源数量
type ResourceAmount struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// ResourceRequirement 单项资源需求
type ResourceRequirement struct {
	ResourceType        string          `json:"resource_type"` // cpu, memory, storage, network
	MinimumAllocation   ResourceAmount  `json:"minimum_allocation"`
	PreferredAllocation ResourceAmount  `json:"preferred_allocation"`
	MaximumAllocation   *ResourceAmount `json:"maximum_allocation,omitempty"`
}

// ResourceAllocationRequest 资源分配请求
type ResourceAllocationRequest struct {
	RequestID              string                `json:"request_id"`
	ComponentName          string                `json:"component_name"`
	ResourceRequirements   []ResourceRequirement `json:"resource_requirements"`
	Priority               AllocationPriority    `json:"priority"`
	CostSensitivity        *float64              `json:"cost_sensitivity,omitempty"`
	PerformanceSensitivity *float64              `json:"performance_sensitivity,omitempty"`
	RequestedAt            time.Time             `json:"requested_at"`
}

// ResourceAllocationResponse 资源分配响应
type ResourceAllocationResponse struct {
	AllocationID       string                    `json:"allocation_id"`
	RequestID          string                    `json:"request_id"`
	Status             string                    `json:"status"` // granted, partial, deferred
	AllocatedResources map[string]ResourceAmount `json:"allocated_resources"`
	AllocatedAt        time.Time                 `json:"allocated_at"`
}

// === 校验和冲突错误类型 ===

// EmptyRequirementsError 资源需求为空错误
type EmptyRequirementsError struct {
	RequestID string
}

func (e *EmptyRequirementsError) Error() string {
	return fmt.Sprintf("分配请求 %s 的资源需求列表不能为空", e.RequestID)
}

// AllocationRangeError 最小/期望/最大分配量顺序错误
type AllocationRangeError struct {
	ResourceType string
	Detail       string
}

func (e *AllocationRangeError) Error() string {
	return fmt.Sprintf("资源 %s 的分配量区间不一致: %s", e.ResourceType, e.Detail)
}

// InvalidPriorityError 未定义的优先级错误
type InvalidPriorityError struct {
	Priority AllocationPriority
}

func (e *InvalidPriorityError) Error() string {
	return fmt.Sprintf("无效的分配优先级: %s", e.Priority)
}

// AllocationIDConflictError 同一分配ID记录了不同响应的冲突错误
type AllocationIDConflictError struct {
	AllocationID string
}

func (e *AllocationIDConflictError) Error() string {
	return fmt.Sprintf("分配ID %s 已记录了不同的分配响应", e.AllocationID)
}
