package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"HRAM-backend/internal/asset_mgmt/allocations"
	"HRAM-backend/internal/platform/apierr"
	"HRAM-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(sqldb *sql.DB) *Store { return &Store{db: sqldb} }

const requestColumns = `request_id, request_ulid, employee_id, category, description, status, approved_asset_id, requested_at, decided_at`

func scanRequest(row interface{ Scan(...any) error }, r *Request) error {
	return row.Scan(
		&r.RequestID, &r.RequestULID, &r.EmployeeID, &r.Category, &r.Description,
		&r.Status, &r.ApprovedAssetID, &r.RequestedAt, &r.DecidedAt,
	)
}

func (s *Store) Insert(ctx context.Context, r *Request) error {
	const q = `
	INSERT INTO asset_requests
	(request_ulid, employee_id, category, description, status, requested_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		r.RequestULID, r.EmployeeID, r.Category, r.Description, r.Status, r.RequestedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.RequestID = id
	return nil
}

// ExecApprove approves one request and binds the asset in a single transaction.
//
// 申請行を FOR UPDATE で押さえてから allocations.AllocateTx を呼ぶ。
// 資産確保に負けたら（CONFLICT）全体がロールバックして申請は requested の
// まま残る。「approvedなのに資産が無い」状態は外から観測できない。
func (s *Store) ExecApprove(ctx context.Context, requestID int64, alloc *allocations.Allocation) (*Request, error) {
	var out Request
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		q := `SELECT ` + requestColumns + ` FROM asset_requests WHERE request_id = ? FOR UPDATE`
		if err := scanRequest(tx.QueryRowContext(ctx, q, requestID), &out); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("request not found")
			}
			return err
		}
		if out.Status != StatusRequested {
			return apierr.ErrInvalidState("request already " + string(out.Status))
		}

		// 申請者に紐づけて資産を確保
		alloc.EmployeeID = out.EmployeeID
		if err := allocations.AllocateTx(ctx, tx, alloc); err != nil {
			return err
		}

		const updQ = `
		UPDATE asset_requests
		SET status = 'approved', approved_asset_id = ?, decided_at = ?
		WHERE request_id = ?`
		if _, err := tx.ExecContext(ctx, updQ, alloc.AssetID, alloc.AllocatedAt, requestID); err != nil {
			return err
		}

		out.Status = StatusApproved
		out.ApprovedAssetID = sql.NullInt64{Int64: alloc.AssetID, Valid: true}
		out.DecidedAt = sql.NullTime{Time: alloc.AllocatedAt, Valid: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecReject は却下。終端状態からの再遷移は INVALID_STATE。
func (s *Store) ExecReject(ctx context.Context, requestID int64, decidedAt time.Time) (*Request, error) {
	var out Request
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		q := `SELECT ` + requestColumns + ` FROM asset_requests WHERE request_id = ? FOR UPDATE`
		if err := scanRequest(tx.QueryRowContext(ctx, q, requestID), &out); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("request not found")
			}
			return err
		}
		if out.Status != StatusRequested {
			return apierr.ErrInvalidState("request already " + string(out.Status))
		}

		const updQ = `UPDATE asset_requests SET status = 'rejected', decided_at = ? WHERE request_id = ?`
		if _, err := tx.ExecContext(ctx, updQ, decidedAt, requestID); err != nil {
			return err
		}

		out.Status = StatusRejected
		out.DecidedAt = sql.NullTime{Time: decidedAt, Valid: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ===== Queries =====

func (s *Store) GetByID(ctx context.Context, id int64) (*Request, error) {
	q := `SELECT ` + requestColumns + ` FROM asset_requests WHERE request_id = ?`
	var r Request
	if err := scanRequest(s.db.QueryRowContext(ctx, q, id), &r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("request not found")
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Request, error) {
	q := `SELECT ` + requestColumns + ` FROM asset_requests WHERE request_ulid = ?`
	var r Request
	if err := scanRequest(s.db.QueryRowContext(ctx, q, ulid), &r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrNotFound("request not found")
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) List(ctx context.Context, f RequestFilter, p Page) ([]Request, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Status != nil {
		where += ` AND status = ?`
		args = append(args, *f.Status)
	}
	if f.EmployeeID != nil {
		where += ` AND employee_id = ?`
		args = append(args, *f.EmployeeID)
	}
	if f.Category != nil {
		where += ` AND category = ?`
		args = append(args, *f.Category)
	}

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

	q := fmt.Sprintf(`SELECT %s FROM asset_requests%s ORDER BY requested_at %s, request_id %s LIMIT ? OFFSET ?`,
		requestColumns, where, order, order)
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var r Request
		if err := scanRequest(rows, &r); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM asset_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
