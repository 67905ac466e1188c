package allocations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"HRAM-backend/internal/platform/apierr"
	"HRAM-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(sqldb *sql.DB) *Store { return &Store{db: sqldb} }

const allocColumns = `allocation_id, allocation_ulid, asset_id, employee_id, allocated_at, returned_at, condition_on_checkout, condition_on_return`

func scanAllocation(row interface{ Scan(...any) error }, a *Allocation) error {
	return row.Scan(
		&a.AllocationID, &a.AllocationULID, &a.AssetID, &a.EmployeeID,
		&a.AllocatedAt, &a.ReturnedAt, &a.ConditionOnCheckout, &a.ConditionOnReturn,
	)
}

// AllocateTx binds one asset to one employee inside the caller's transaction.
//
// assets.status への条件付きUPDATEがCAS（負けたら affected=0）。InnoDBの
// 行ロックで同一資産への同時確保は直列化されるので、コミット時点で
// available だった1件だけが勝つ。負けは業務上の確定CONFLICTであって
// リトライ対象ではない。requests の承認Txからも呼ばれる。
func AllocateTx(ctx context.Context, q db.DBTX, a *Allocation) error {
	const casQ = `
	UPDATE assets SET status = 'allocated', updated_at = CURRENT_TIMESTAMP
	WHERE asset_id = ? AND status = 'available'`
	res, err := q.ExecContext(ctx, casQ, a.AssetID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		var st string
		err := q.QueryRowContext(ctx, `SELECT status FROM assets WHERE asset_id = ?`, a.AssetID).Scan(&st)
		if errors.Is(err, sql.ErrNoRows) {
			return apierr.ErrNotFound("asset not found")
		}
		if err != nil {
			return err
		}
		return apierr.ErrConflict(fmt.Sprintf("asset %d is not available (status=%s)", a.AssetID, st))
	}

	const insQ = `
	INSERT INTO asset_allocations
	(allocation_ulid, asset_id, employee_id, allocated_at, condition_on_checkout)
	VALUES (?, ?, ?, ?, ?)`
	ins, err := q.ExecContext(ctx, insQ,
		a.AllocationULID, a.AssetID, a.EmployeeID, a.AllocatedAt, a.ConditionOnCheckout)
	if err != nil {
		return err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return err
	}
	a.AllocationID = id
	return nil
}

// ExecAllocate は直接貸与の1トランザクション
func (s *Store) ExecAllocate(ctx context.Context, a *Allocation) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		return AllocateTx(ctx, tx, a)
	})
}

// ExecReturn closes an open allocation and flips the asset back.
// 2回目の返却は ALREADY_RETURNED（黙って握りつぶすと監査が嘘になる）。
func (s *Store) ExecReturn(ctx context.Context, cmd ReturnCmd) (*Allocation, error) {
	var out Allocation
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		q := `SELECT ` + allocColumns + ` FROM asset_allocations WHERE allocation_id = ? FOR UPDATE`
		if err := scanAllocation(tx.QueryRowContext(ctx, q, cmd.AllocationID), &out); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("allocation not found")
			}
			return err
		}
		if out.ReturnedAt.Valid {
			return apierr.ErrAlreadyReturned("allocation already returned")
		}

		const updQ = `
		UPDATE asset_allocations SET returned_at = ?, condition_on_return = ?
		WHERE allocation_id = ?`
		if _, err := tx.ExecContext(ctx, updQ, cmd.ReturnedAt, cmd.ConditionOnReturn, cmd.AllocationID); err != nil {
			return err
		}

		newStatus := "available"
		if cmd.Damaged {
			newStatus = "damaged"
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE assets SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE asset_id = ? AND status = 'allocated'`,
			newStatus, out.AssetID)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff != 1 {
			// 貸与中の行があるのに資産が allocated でないのは台帳と不整合
			return apierr.ErrInternal("asset status out of sync with ledger")
		}

		out.ReturnedAt = sql.NullTime{Time: cmd.ReturnedAt, Valid: true}
		out.ConditionOnReturn = cmd.ConditionOnReturn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ===== Queries =====

func (s *Store) GetByID(ctx context.Context, id int64) (*Allocation, error) {
	q := `SELECT ` + allocColumns + ` FROM asset_allocations WHERE allocation_id = ?`
	var a Allocation
	if err := scanAllocation(s.db.QueryRowContext(ctx, q, id), &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("allocation not found")
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Allocation, error) {
	q := `SELECT ` + allocColumns + ` FROM asset_allocations WHERE allocation_ulid = ?`
	var a Allocation
	if err := scanAllocation(s.db.QueryRowContext(ctx, q, ulid), &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("allocation not found")
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) List(ctx context.Context, f AllocationFilter, p Page) ([]Allocation, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.EmployeeID != nil {
		where += ` AND employee_id = ?`
		args = append(args, *f.EmployeeID)
	}
	if f.AssetID != nil {
		where += ` AND asset_id = ?`
		args = append(args, *f.AssetID)
	}
	if f.Open != nil {
		if *f.Open {
			where += ` AND returned_at IS NULL`
		} else {
			where += ` AND returned_at IS NOT NULL`
		}
	}

	order := "ASC" // 既定は貸与日の昇順
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := fmt.Sprintf(`SELECT %s FROM asset_allocations%s ORDER BY allocated_at %s, allocation_id %s LIMIT ? OFFSET ?`,
		allocColumns, where, order, order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Allocation
	for rows.Next() {
		var a Allocation
		if err := scanAllocation(rows, &a); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM asset_allocations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
