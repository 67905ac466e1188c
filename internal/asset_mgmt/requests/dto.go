package requests

import "time"

// ===== Requests =====

type SubmitRequest struct {
	EmployeeID  string  `json:"employee_id" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description *string `json:"description,omitempty"`
}

// 承認は対象資産の指定が必須。binding で弾くのでワークフローまで届かない。
type ApproveRequest struct {
	AssetID int64 `json:"asset_id" binding:"required"`
}

// ===== Responses =====

type RequestResponse struct {
	RequestID       int64      `json:"request_id"`
	RequestULID     string     `json:"request_ulid"`
	EmployeeID      string     `json:"employee_id"`
	Category        string     `json:"category"`
	Description     *string    `json:"description,omitempty"`
	Status          string     `json:"status"`
	ApprovedAssetID *int64     `json:"approved_asset_id,omitempty"`
	RequestedAt     time.Time  `json:"requested_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
}
