/*
 * @module service/allocation/ledger_test
 * @description 资源分配台账单元测试，覆盖请求校验、幂等登记和allocation_id冲突检测
 * @architecture 测试层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 测试准备 -> 台账操作 -> 结果验证
 */

package allocation

import (
	"testing"
	"time"

	"qualityhub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

// makeRequest 构造一条合法的资源分配请求
func makeRequest(requestID string) *models.ResourceAllocationRequest {
	return &models.ResourceAllocationRequest{
		RequestID:     requestID,
		ComponentName: "spark",
		ResourceRequirements: []models.ResourceRequirement{
			{
				ResourceType:        "cpu",
				MinimumAllocation:   models.ResourceAmount{Amount: 1, Unit: "core"},
				PreferredAllocation: models.ResourceAmount{Amount: 2, Unit: "core"},
				MaximumAllocation:   &models.ResourceAmount{Amount: 4, Unit: "core"},
			},
			{
				ResourceType:        "memory",
				MinimumAllocation:   models.ResourceAmount{Amount: 512, Unit: "MB"},
				PreferredAllocation: models.ResourceAmount{Amount: 1024, Unit: "MB"},
			},
		},
		Priority:               models.AllocationPriorityNormal,
		CostSensitivity:        floatPtr(0.5),
		PerformanceSensitivity: floatPtr(0.8),
		RequestedAt:            time.Now(),
	}
}

// makeResponse 构造一条与请求对应的分配响应
func makeResponse(requestID, allocationID string) *models.ResourceAllocationResponse {
	return &models.ResourceAllocationResponse{
		AllocationID: allocationID,
		RequestID:    requestID,
		Status:       "granted",
		AllocatedResources: map[string]models.ResourceAmount{
			"cpu":    {Amount: 2, Unit: "core"},
			"memory": {Amount: 1024, Unit: "MB"},
		},
		AllocatedAt: time.Now().Truncate(time.Second),
	}
}

// TestValidateRequest_Success 测试合法请求通过校验
func TestValidateRequest_Success(t *testing.T) {
	ledger := NewLedger()
	assert.NoError(t, ledger.ValidateRequest(makeRequest("req-1")))
}

// TestValidateRequest_EmptyRequirements 测试空需求列表被拒绝
func TestValidateRequest_EmptyRequirements(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	request.ResourceRequirements = nil

	var emptyErr *models.EmptyRequirementsError
	require.ErrorAs(t, ledger.ValidateRequest(request), &emptyErr)
	assert.Equal(t, "req-1", emptyErr.RequestID)
}

// TestValidateRequest_MinAbovePreferred 测试最小量超过期望量被拒绝
func TestValidateRequest_MinAbovePreferred(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	request.ResourceRequirements[0].MinimumAllocation.Amount = 3

	var rangeErr *models.AllocationRangeError
	require.ErrorAs(t, ledger.ValidateRequest(request), &rangeErr)
	assert.Equal(t, "cpu", rangeErr.ResourceType)
}

// TestValidateRequest_PreferredAboveMax 测试期望量超过最大量被拒绝
func TestValidateRequest_PreferredAboveMax(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	request.ResourceRequirements[0].PreferredAllocation.Amount = 8

	var rangeErr *models.AllocationRangeError
	require.ErrorAs(t, ledger.ValidateRequest(request), &rangeErr)
	assert.Equal(t, "cpu", rangeErr.ResourceType)
}

// TestValidateRequest_NoMaximum 测试未声明最大量时只校验min<=preferred
func TestValidateRequest_NoMaximum(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	request.ResourceRequirements[1].PreferredAllocation.Amount = 1 << 20
	assert.NoError(t, ledger.ValidateRequest(request))
}

// TestValidateRequest_InvalidPriority 测试未知优先级被拒绝
func TestValidateRequest_InvalidPriority(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	request.Priority = models.AllocationPriority("urgent")

	var prioErr *models.InvalidPriorityError
	require.ErrorAs(t, ledger.ValidateRequest(request), &prioErr)
}

// TestValidateRequest_SensitivityRange 测试敏感度越界被拒绝，未提供时跳过
func TestValidateRequest_SensitivityRange(t *testing.T) {
	ledger := NewLedger()

	request := makeRequest("req-1")
	request.CostSensitivity = floatPtr(1.3)
	var rangeErr *models.OutOfRangeError
	require.ErrorAs(t, ledger.ValidateRequest(request), &rangeErr)
	assert.Equal(t, "cost_sensitivity", rangeErr.Field)

	request = makeRequest("req-2")
	request.PerformanceSensitivity = floatPtr(-0.1)
	require.ErrorAs(t, ledger.ValidateRequest(request), &rangeErr)
	assert.Equal(t, "performance_sensitivity", rangeErr.Field)

	request = makeRequest("req-3")
	request.CostSensitivity = nil
	request.PerformanceSensitivity = nil
	assert.NoError(t, ledger.ValidateRequest(request))
}

// TestRecordAllocation_Idempotent 测试相同请求响应对重复登记为无操作
func TestRecordAllocation_Idempotent(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	response := makeResponse("req-1", "alloc-1")

	require.NoError(t, ledger.RecordAllocation(request, response))
	require.NoError(t, ledger.RecordAllocation(request, response))
	assert.Equal(t, 1, ledger.Size())
}

// TestRecordAllocation_Conflict 测试同一allocation_id登记不同响应返回冲突且不覆盖
func TestRecordAllocation_Conflict(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	response := makeResponse("req-1", "alloc-1")
	require.NoError(t, ledger.RecordAllocation(request, response))

	changed := makeResponse("req-1", "alloc-1")
	changed.Status = "partial"
	err := ledger.RecordAllocation(request, changed)

	var conflictErr *models.AllocationIDConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "alloc-1", conflictErr.AllocationID)

	_, stored, ok := ledger.GetAllocation("alloc-1")
	require.True(t, ok)
	assert.Equal(t, "granted", stored.Status)
}

// TestRecordAllocation_ConflictOnDifferentRequestID 测试同一allocation_id换request_id也视为冲突
func TestRecordAllocation_ConflictOnDifferentRequestID(t *testing.T) {
	ledger := NewLedger()
	require.NoError(t, ledger.RecordAllocation(makeRequest("req-1"), makeResponse("req-1", "alloc-1")))

	err := ledger.RecordAllocation(makeRequest("req-2"), makeResponse("req-2", "alloc-1"))
	var conflictErr *models.AllocationIDConflictError
	require.ErrorAs(t, err, &conflictErr)
}

// TestRecordAllocation_InvalidRequestNotRecorded 测试非法请求不写入台账
func TestRecordAllocation_InvalidRequestNotRecorded(t *testing.T) {
	ledger := NewLedger()
	request := makeRequest("req-1")
	request.ResourceRequirements = nil

	require.Error(t, ledger.RecordAllocation(request, makeResponse("req-1", "alloc-1")))
	assert.Equal(t, 0, ledger.Size())

	_, _, ok := ledger.GetAllocation("alloc-1")
	assert.False(t, ok)
}

// TestGetAllocation_ReturnsCopies 测试查询结果与台账内部状态隔离
func TestGetAllocation_ReturnsCopies(t *testing.T) {
	ledger := NewLedger()
	require.NoError(t, ledger.RecordAllocation(makeRequest("req-1"), makeResponse("req-1", "alloc-1")))

	_, response, ok := ledger.GetAllocation("alloc-1")
	require.True(t, ok)
	response.Status = "revoked"

	_, again, ok := ledger.GetAllocation("alloc-1")
	require.True(t, ok)
	assert.Equal(t, "granted", again.Status)
}

// TestListAllocationIDs_Sorted 测试台账键列表按allocation_id排序
func TestListAllocationIDs_Sorted(t *testing.T) {
	ledger := NewLedger()
	require.NoError(t, ledger.RecordAllocation(makeRequest("req-1"), makeResponse("req-1", "alloc-c")))
	require.NoError(t, ledger.RecordAllocation(makeRequest("req-2"), makeResponse("req-2", "alloc-a")))
	require.NoError(t, ledger.RecordAllocation(makeRequest("req-3"), makeResponse("req-3", "alloc-b")))

	assert.Equal(t, []string{"alloc-a", "alloc-b", "alloc-c"}, ledger.ListAllocationIDs())
}

// TestAllocationPriority_Compare 测试优先级排序关系
func TestAllocationPriority_Compare(t *testing.T) {
	assert.Positive(t, models.AllocationPriorityConsciousnessCritical.Compare(models.AllocationPriorityCritical))
	assert.Positive(t, models.AllocationPriorityCritical.Compare(models.AllocationPriorityHigh))
	assert.Negative(t, models.AllocationPriorityLow.Compare(models.AllocationPriorityNormal))
	assert.Zero(t, models.AllocationPriorityNormal.Compare(models.AllocationPriorityNormal))
}
