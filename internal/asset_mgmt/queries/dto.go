package queries

import "time"

// 画面系（社外コンポーネント）が使う読み取り専用ビュー。
// 台帳を正とする読み抜けで、こちら側では一切キャッシュしない。

type AvailableAssetView struct {
	AssetID   int64   `json:"asset_id"`
	AssetULID string  `json:"asset_ulid"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	LotNumber *string `json:"lot_number,omitempty"`
}

type OpenAllocationView struct {
	AllocationID        int64     `json:"allocation_id"`
	AllocationULID      string    `json:"allocation_ulid"`
	AssetID             int64     `json:"asset_id"`
	AssetName           string    `json:"asset_name"`
	AssetCategory       string    `json:"asset_category"`
	EmployeeID          string    `json:"employee_id"`
	AllocatedAt         time.Time `json:"allocated_at"`
	ConditionOnCheckout string    `json:"condition_on_checkout"`
}

type PendingRequestView struct {
	RequestID   int64     `json:"request_id"`
	RequestULID string    `json:"request_ulid"`
	EmployeeID  string    `json:"employee_id"`
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
