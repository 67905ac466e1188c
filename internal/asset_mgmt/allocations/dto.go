package allocations

import "time"

// ===== Requests =====

type CreateAllocationRequest struct {
	AssetID    int64  `json:"asset_id" binding:"required"`
	EmployeeID string `json:"employee_id" binding:"required"`
	// "2006-01-02" 形式。省略時は現在時刻
	AllocatedOn *string `json:"allocated_on,omitempty"`
	Condition   *string `json:"condition,omitempty"`
}

type CreateReturnRequest struct {
	AllocationID int64 `json:"allocation_id" binding:"required"`
	// "2006-01-02" 形式。省略時は現在時刻
	ReturnedOn *string `json:"returned_on,omitempty"`
	// trueなら資産を available ではなく damaged に落とす
	Damaged   bool    `json:"damaged,omitempty"`
	Condition *string `json:"condition,omitempty"`
}

// ===== Responses =====

type AllocationResponse struct {
	AllocationID        int64      `json:"allocation_id"`
	AllocationULID      string     `json:"allocation_ulid"`
	AssetID             int64      `json:"asset_id"`
	EmployeeID          string     `json:"employee_id"`
	AllocatedAt         time.Time  `json:"allocated_at"`
	ReturnedAt          *time.Time `json:"returned_at,omitempty"`
	ConditionOnCheckout string     `json:"condition_on_checkout"`
	ConditionOnReturn   *string    `json:"condition_on_return,omitempty"`
}
