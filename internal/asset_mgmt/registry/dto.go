package registry

import "time"

// ===== Requests =====

type CreateAssetRequest struct {
	Name      string  `json:"name" binding:"required"`
	Category  string  `json:"category" binding:"required"`
	LotNumber *string `json:"lot_number,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type UpdateAssetRequest struct {
	Name      *string `json:"name,omitempty"`
	Category  *string `json:"category,omitempty"`
	LotNumber *string `json:"lot_number,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	// available / maintenance / damaged のみ。allocated への遷移は
	// allocations のTx経由でしか起きない。
	Status *string `json:"status,omitempty"`
}

// ===== Responses =====

type AssetResponse struct {
	AssetID   int64     `json:"asset_id"`
	AssetULID string    `json:"asset_ulid"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	LotNumber *string   `json:"lot_number,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}

type AssetSearchQuery struct {
	Status   *Status
	Category *string
}
