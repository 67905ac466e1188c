package queries

import (
	"context"
	"database/sql"

	"HRAM-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(sqldb *sql.DB) *Store { return &Store{db: sqldb} }

func (s *Store) AvailableAssets(ctx context.Context, category *string) ([]AvailableAssetView, error) {
	q := `
	SELECT asset_id, asset_ulid, name, category, lot_number
	FROM assets WHERE status = 'available'`
	args := []any{}
	if category != nil {
		q += ` AND category = ?`
		args = append(args, *category)
	}
	q += ` ORDER BY asset_id ASC`

	var out []AvailableAssetView
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v AvailableAssetView
			var lot sql.NullString
			if err := rows.Scan(&v.AssetID, &v.AssetULID, &v.Name, &v.Category, &lot); err != nil {
				return err
			}
			if lot.Valid {
				l := lot.String
				v.LotNumber = &l
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) OpenAllocationsByEmployee(ctx context.Context, employeeID string) ([]OpenAllocationView, error) {
	const q = `
	SELECT
	al.allocation_id, al.allocation_ulid, al.asset_id, a.name, a.category,
	al.employee_id, al.allocated_at, al.condition_on_checkout
	FROM asset_allocations al
	JOIN assets a ON a.asset_id = al.asset_id
	WHERE al.employee_id = ? AND al.returned_at IS NULL
	ORDER BY al.allocated_at ASC, al.allocation_id ASC`

	var out []OpenAllocationView
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q, employeeID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v OpenAllocationView
			if err := rows.Scan(
				&v.AllocationID, &v.AllocationULID, &v.AssetID, &v.AssetName, &v.AssetCategory,
				&v.EmployeeID, &v.AllocatedAt, &v.ConditionOnCheckout,
			); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) PendingRequests(ctx context.Context) ([]PendingRequestView, error) {
	const q = `
	SELECT request_id, request_ulid, employee_id, category, description, requested_at
	FROM asset_requests WHERE status = 'requested'
	ORDER BY requested_at ASC, request_id ASC`

	var out []PendingRequestView
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v PendingRequestView
			var desc sql.NullString
			if err := rows.Scan(&v.RequestID, &v.RequestULID, &v.EmployeeID, &v.Category, &desc, &v.RequestedAt); err != nil {
				return err
			}
			if desc.Valid {
				d := desc.String
				v.Description = &d
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}
