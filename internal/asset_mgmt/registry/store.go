package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const assetColumns = `asset_id, asset_ulid, name, category, lot_number, notes, status, created_at, updated_at`

func scanAsset(row interface{ Scan(...any) error }, a *Asset) error {
	return row.Scan(
		&a.AssetID, &a.AssetULID, &a.Name, &a.Category,
		&a.LotNumber, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (s *Store) Insert(ctx context.Context, a *Asset) error {
	const q = `
	INSERT INTO assets (asset_ulid, name, category, lot_number, notes, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	res, err := s.db.ExecContext(ctx, q, a.AssetULID, a.Name, a.Category, a.LotNumber, a.Notes, a.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.AssetID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Asset, error) {
	q := `SELECT ` + assetColumns + ` FROM assets WHERE asset_id = ?`
	var a Asset
	if err := scanAsset(s.db.QueryRowContext(ctx, q, id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) List(ctx context.Context, f AssetSearchQuery, p Page) ([]Asset, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Status != nil {
		where += ` AND status = ?`
		args = append(args, *f.Status)
	}
	if f.Category != nil {
		where += ` AND category = ?`
		args = append(args, *f.Category)
	}

	// 登録順がデフォルト（テストの決定性のため）
	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := fmt.Sprintf(`SELECT %s FROM assets%s ORDER BY asset_id %s LIMIT ? OFFSET ?`, assetColumns, where, order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := scanAsset(rows, &a); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateFields は name/category/lot_number/notes の部分更新。status は対象外。
func (s *Store) UpdateFields(ctx context.Context, id int64, in UpdateAssetRequest) error {
	sets := []string{}
	args := []any{}
	if in.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *in.Name)
	}
	if in.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *in.Category)
	}
	if in.LotNumber != nil {
		sets = append(sets, "lot_number = ?")
		args = append(args, *in.LotNumber)
	}
	if in.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *in.Notes)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	q := `UPDATE assets SET ` + strings.Join(sets, ", ") + ` WHERE asset_id = ?`
	res, err := s.db.ExecContext(ctx, q, append(args, id)...)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// 同値更新でも RowsAffected=0 になりうるので存在チェックで区別する
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets WHERE asset_id = ?`, id).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
	}
	return nil
}

// UpdateStatusUnlessAllocated flips status between the non-allocation states.
// allocated からの遷移（＝返却）は allocations のTxだけが書くため、ここでは弾く。
func (s *Store) UpdateStatusUnlessAllocated(ctx context.Context, id int64, to Status) (bool, error) {
	const q = `
	UPDATE assets SET status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE asset_id = ? AND status <> 'allocated'`
	res, err := s.db.ExecContext(ctx, q, to, id)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// ListAll はCSVエクスポート用の全件取得（登録順）
func (s *Store) ListAll(ctx context.Context) ([]Asset, error) {
	q := `SELECT ` + assetColumns + ` FROM assets ORDER BY asset_id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := scanAsset(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
