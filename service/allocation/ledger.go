/*
 * @module service/allocation/ledger
 * @description 资源分配台账，提供分配请求校验和分配记录的幂等登记，不包含任何调度或供给逻辑
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 请求校验 -> 幂等登记 -> 台账查询
 * @rules 校验先于一切状态变更；相同(request_id, allocation_id)重复登记为无操作，同一allocation_id登记不同响应为冲突
 * @dependencies qualityhub-service/service/models, sync, reflect
 * @refs service/models/allocation_models.go, api/controllers/allocation_controller.go
 */

package allocation

import (
	"reflect"
	"sort"
	"sync"

	"qualityhub-service/service/models"
)

// ledgerEntry 台账条目，保存请求和响应的配对
type ledgerEntry struct {
	request  models.ResourceAllocationRequest
	response models.ResourceAllocationResponse
}

// Ledger 资源分配台账
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*ledgerEntry // allocation_id -> entry
}

// NewLedger 创建资源分配台账实例
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]*ledgerEntry),
	}
}

// ValidateRequest 校验分配请求
// 检查需求非空、分配量区间有序、优先级合法、敏感度位于[0,1]区间；不修改任何台账状态
func (l *Ledger) ValidateRequest(request *models.ResourceAllocationRequest) error {
	if len(request.ResourceRequirements) == 0 {
		return &models.EmptyRequirementsError{RequestID: request.RequestID}
	}

	for _, req := range request.ResourceRequirements {
		if req.MinimumAllocation.Amount > req.PreferredAllocation.Amount {
			return &models.AllocationRangeError{
				ResourceType: req.ResourceType,
				Detail:       "最小分配量大于期望分配量",
			}
		}
		if req.MaximumAllocation != nil && req.PreferredAllocation.Amount > req.MaximumAllocation.Amount {
			return &models.AllocationRangeError{
				ResourceType: req.ResourceType,
				Detail:       "期望分配量大于最大分配量",
			}
		}
	}

	if !request.Priority.IsValid() {
		return &models.InvalidPriorityError{Priority: request.Priority}
	}

	if request.CostSensitivity != nil {
		if v := *request.CostSensitivity; v < 0.0 || v > 1.0 {
			return &models.OutOfRangeError{Field: "cost_sensitivity", Value: v}
		}
	}
	if request.PerformanceSensitivity != nil {
		if v := *request.PerformanceSensitivity; v < 0.0 || v > 1.0 {
			return &models.OutOfRangeError{Field: "performance_sensitivity", Value: v}
		}
	}

	return nil
}

// RecordAllocation 登记一对分配请求和响应，按allocation_id作为键
// 相同(request_id, allocation_id)且响应一致的重复登记为无操作；同一allocation_id登记不同响应返回冲突错误
func (l *Ledger) RecordAllocation(request *models.ResourceAllocationRequest, response *models.ResourceAllocationResponse) error {
	if err := l.ValidateRequest(request); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.entries[response.AllocationID]; ok {
		if existing.request.RequestID == request.RequestID &&
			reflect.DeepEqual(existing.response, *response) {
			return nil
		}
		return &models.AllocationIDConflictError{AllocationID: response.AllocationID}
	}

	l.entries[response.AllocationID] = &ledgerEntry{
		request:  *request,
		response: *response,
	}
	return nil
}

// GetAllocation 按allocation_id查询台账条目
func (l *Ledger) GetAllocation(allocationID string) (*models.ResourceAllocationRequest, *models.ResourceAllocationResponse, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[allocationID]
	if !ok {
		return nil, nil, false
	}

	request := entry.request
	response := entry.response
	return &request, &response, true
}

// ListAllocationIDs 列出全部已登记的allocation_id，按字典序排序
func (l *Ledger) ListAllocationIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Size 返回台账条目数
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
