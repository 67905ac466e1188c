package requests

import (
	"database/sql"
	"time"
)

// RequestStatus は asset_requests.status のENUM値。
// requested が初期状態で、approved / rejected は終端（以後遷移なし）。
type RequestStatus string

const (
	StatusRequested RequestStatus = "requested"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
)

// Request は asset_requests テーブルの1行を表す。
// approved_asset_id は status=approved のときだけ非NULL。
type Request struct {
	RequestID       int64
	RequestULID     string
	EmployeeID      string
	Category        string
	Description     sql.NullString
	Status          RequestStatus
	ApprovedAssetID sql.NullInt64
	RequestedAt     time.Time
	DecidedAt       sql.NullTime
}

// 申請一覧の検索条件
type RequestFilter struct {
	Status     *RequestStatus
	EmployeeID *string
	Category   *string
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
