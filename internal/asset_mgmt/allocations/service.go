package allocations

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"HRAM-backend/internal/platform/apierr"
	"HRAM-backend/internal/platform/metrics"
)

const defaultCondition = "good"

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ledgerStore は Service が使う永続化層。本番は *Store(MySQL)、テストはメモリ実装。
// ExecAllocate / ExecReturn は1トランザクション分の原子性を持つこと。
type ledgerStore interface {
	ExecAllocate(ctx context.Context, a *Allocation) error
	ExecReturn(ctx context.Context, cmd ReturnCmd) (*Allocation, error)
	GetByID(ctx context.Context, id int64) (*Allocation, error)
	GetByULID(ctx context.Context, ulid string) (*Allocation, error)
	List(ctx context.Context, f AllocationFilter, p Page) ([]Allocation, int64, error)
}

// ===== Service本体 =====

type Service struct {
	store ledgerStore
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return newService(NewStore(db), realClock{}, ulidGen{})
}

func newService(store ledgerStore, clock Clock, id IDGen) *Service {
	return &Service{store: store, clock: clock, id: id}
}

// Allocate は資産を従業員に貸与する。
// 同一資産への同時確保は store 側で直列化され、負けた側は CONFLICT。
func (s *Service) Allocate(ctx context.Context, req CreateAllocationRequest) (*AllocationResponse, error) {
	if req.AssetID <= 0 {
		return nil, apierr.ErrInvalid("asset_id must be > 0")
	}
	if strings.TrimSpace(req.EmployeeID) == "" {
		return nil, apierr.ErrInvalid("employee_id is required")
	}

	allocatedAt := s.clock.Now()
	if req.AllocatedOn != nil && *req.AllocatedOn != "" {
		parsed, err := time.Parse("2006-01-02", *req.AllocatedOn)
		if err != nil {
			return nil, apierr.ErrInvalid("invalid allocated_on format, expected YYYY-MM-DD")
		}
		allocatedAt = parsed
	}

	condition := defaultCondition
	if req.Condition != nil && strings.TrimSpace(*req.Condition) != "" {
		condition = *req.Condition
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	a := &Allocation{
		AllocationULID:      idStr,
		AssetID:             req.AssetID,
		EmployeeID:          req.EmployeeID,
		AllocatedAt:         allocatedAt,
		ConditionOnCheckout: condition,
	}
	if err := s.store.ExecAllocate(ctx, a); err != nil {
		metrics.AllocationsTotal.WithLabelValues(allocResult(err)).Inc()
		return nil, err
	}
	metrics.AllocationsTotal.WithLabelValues("ok").Inc()

	resp := buildAllocationResponse(a)
	return &resp, nil
}

// Return は貸与を締めて資産を戻す（damaged 指定時は damaged に落とす）
func (s *Service) Return(ctx context.Context, req CreateReturnRequest) (*AllocationResponse, error) {
	if req.AllocationID <= 0 {
		return nil, apierr.ErrInvalid("allocation_id must be > 0")
	}

	returnedAt := s.clock.Now()
	if req.ReturnedOn != nil && *req.ReturnedOn != "" {
		parsed, err := time.Parse("2006-01-02", *req.ReturnedOn)
		if err != nil {
			return nil, apierr.ErrInvalid("invalid returned_on format, expected YYYY-MM-DD")
		}
		returnedAt = parsed
	}

	cmd := ReturnCmd{
		AllocationID: req.AllocationID,
		ReturnedAt:   returnedAt,
		Damaged:      req.Damaged,
	}
	if req.Condition != nil && strings.TrimSpace(*req.Condition) != "" {
		cmd.ConditionOnReturn = sql.NullString{String: *req.Condition, Valid: true}
	}

	a, err := s.store.ExecReturn(ctx, cmd)
	if err != nil {
		metrics.ReturnsTotal.WithLabelValues(returnResult(err)).Inc()
		return nil, err
	}
	metrics.ReturnsTotal.WithLabelValues("ok").Inc()

	resp := buildAllocationResponse(a)
	return &resp, nil
}

// 貸与単一取得（ID or ULID）
func (s *Service) GetByKey(ctx context.Context, key string) (*AllocationResponse, error) {
	if key == "" {
		return nil, apierr.ErrInvalid("id or ulid is required")
	}

	var a *Allocation
	var err error
	if id, perr := strconv.ParseInt(key, 10, 64); perr == nil && id > 0 {
		a, err = s.store.GetByID(ctx, id)
	} else {
		a, err = s.store.GetByULID(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	resp := buildAllocationResponse(a)
	return &resp, nil
}

// 貸与一覧（既定は allocated_at 昇順）
func (s *Service) List(ctx context.Context, f AllocationFilter, p Page) ([]AllocationResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AllocationResponse, 0, len(items))
	for i := range items {
		out = append(out, buildAllocationResponse(&items[i]))
	}
	return out, total, nil
}

// ListByEmployee は従業員単位の貸与履歴
func (s *Service) ListByEmployee(ctx context.Context, employeeID string, open *bool, p Page) ([]AllocationResponse, int64, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, 0, apierr.ErrInvalid("employee_id is required")
	}
	return s.List(ctx, AllocationFilter{EmployeeID: &employeeID, Open: open}, p)
}

// ===== helpers =====

func buildAllocationResponse(a *Allocation) AllocationResponse {
	resp := AllocationResponse{
		AllocationID:        a.AllocationID,
		AllocationULID:      a.AllocationULID,
		AssetID:             a.AssetID,
		EmployeeID:          a.EmployeeID,
		AllocatedAt:         a.AllocatedAt,
		ConditionOnCheckout: a.ConditionOnCheckout,
	}
	if a.ReturnedAt.Valid {
		v := a.ReturnedAt.Time
		resp.ReturnedAt = &v
	}
	if a.ConditionOnReturn.Valid {
		v := a.ConditionOnReturn.String
		resp.ConditionOnReturn = &v
	}
	return resp
}

func allocResult(err error) string {
	switch apierr.CodeOf(err) {
	case apierr.CodeConflict:
		return "conflict"
	case apierr.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func returnResult(err error) string {
	switch apierr.CodeOf(err) {
	case apierr.CodeAlreadyReturned:
		return "already_returned"
	case apierr.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
