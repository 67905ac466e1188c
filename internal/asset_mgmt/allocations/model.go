package allocations

import (
	"database/sql"
	"time"
)

// Allocation は asset_allocations テーブルの1行を表す。
// returned_at が NULL の行が「貸与中」。行の削除はしない（監査証跡）。
type Allocation struct {
	AllocationID        int64
	AllocationULID      string
	AssetID             int64
	EmployeeID          string
	AllocatedAt         time.Time
	ReturnedAt          sql.NullTime
	ConditionOnCheckout string
	ConditionOnReturn   sql.NullString
}

// ReturnCmd は返却処理の入力（store向けに正規化済み）
type ReturnCmd struct {
	AllocationID      int64
	ReturnedAt        time.Time
	Damaged           bool
	ConditionOnReturn sql.NullString
}

// 貸与一覧の検索条件
type AllocationFilter struct {
	EmployeeID *string
	AssetID    *int64
	Open       *bool // true: returned_at IS NULL のみ
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
