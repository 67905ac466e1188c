package registry

import (
	"database/sql"
	"time"
)

// Status は assets.status のENUM値
type Status string

const (
	StatusAvailable   Status = "available"
	StatusAllocated   Status = "allocated"
	StatusDamaged     Status = "damaged"
	StatusMaintenance Status = "maintenance"
)

// ValidStatus reports whether s is one of the known ENUM values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusAllocated, StatusDamaged, StatusMaintenance:
		return true
	}
	return false
}

// Asset は assets テーブルの1行を表す。
// status の allocated⇄available の遷移は allocations 側のTxだけが書く。
type Asset struct {
	AssetID   int64
	AssetULID string
	Name      string
	Category  string
	LotNumber sql.NullString
	Notes     sql.NullString
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
