package requests

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"HRAM-backend/internal/asset_mgmt/allocations"
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

// workflowStore は Service が使う永続化層。ExecApprove / ExecReject は
// 申請行のロックと状態遷移チェックを1トランザクションで行うこと。
type workflowStore interface {
	Insert(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id int64) (*Request, error)
	GetByULID(ctx context.Context, ulid string) (*Request, error)
	List(ctx context.Context, f RequestFilter, p Page) ([]Request, int64, error)
	ExecApprove(ctx context.Context, requestID int64, alloc *allocations.Allocation) (*Request, error)
	ExecReject(ctx context.Context, requestID int64, decidedAt time.Time) (*Request, error)
}

// ===== Service本体 =====

type Service struct {
	store workflowStore
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return newService(NewStore(db), realClock{}, ulidGen{})
}

func newService(store workflowStore, clock Clock, id IDGen) *Service {
	return &Service{store: store, clock: clock, id: id}
}

// Submit は従業員からの貸与申請。初期状態は requested。
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*RequestResponse, error) {
	if strings.TrimSpace(req.EmployeeID) == "" {
		return nil, apierr.ErrInvalid("employee_id is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, apierr.ErrInvalid("category is required")
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	r := &Request{
		RequestULID: idStr,
		EmployeeID:  req.EmployeeID,
		Category:    strings.TrimSpace(req.Category),
		Status:      StatusRequested,
		RequestedAt: s.clock.Now(),
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		r.Description = sql.NullString{String: *req.Description, Valid: true}
	}

	if err := s.store.Insert(ctx, r); err != nil {
		return nil, err
	}
	resp := buildRequestResponse(r)
	return &resp, nil
}

// Approve は申請を承認して資産を紐づける。
// 承認の書き込みと資産確保は store 側で1トランザクション。資産の確保に
// 負けた場合は CONFLICT が返り、申請は requested のまま（別資産で再試行可）。
func (s *Service) Approve(ctx context.Context, key string, in ApproveRequest) (*RequestResponse, error) {
	if in.AssetID <= 0 {
		return nil, apierr.ErrInvalid("asset_id must be > 0")
	}
	requestID, err := s.resolveID(ctx, key)
	if err != nil {
		return nil, err
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	alloc := &allocations.Allocation{
		AllocationULID:      idStr,
		AssetID:             in.AssetID,
		AllocatedAt:         s.clock.Now(),
		ConditionOnCheckout: defaultCondition,
		// EmployeeID はTx内でロックした申請行から引き継ぐ
	}

	r, err := s.store.ExecApprove(ctx, requestID, alloc)
	if err != nil {
		metrics.RequestDecisionsTotal.WithLabelValues("approve", decisionResult(err)).Inc()
		return nil, err
	}
	metrics.RequestDecisionsTotal.WithLabelValues("approve", "ok").Inc()

	resp := buildRequestResponse(r)
	return &resp, nil
}

// Reject は申請の却下。終端状態からは INVALID_STATE。
func (s *Service) Reject(ctx context.Context, key string) (*RequestResponse, error) {
	requestID, err := s.resolveID(ctx, key)
	if err != nil {
		return nil, err
	}

	r, err := s.store.ExecReject(ctx, requestID, s.clock.Now())
	if err != nil {
		metrics.RequestDecisionsTotal.WithLabelValues("reject", decisionResult(err)).Inc()
		return nil, err
	}
	metrics.RequestDecisionsTotal.WithLabelValues("reject", "ok").Inc()

	resp := buildRequestResponse(r)
	return &resp, nil
}

// 申請単一取得（ID or ULID）
func (s *Service) GetByKey(ctx context.Context, key string) (*RequestResponse, error) {
	if key == "" {
		return nil, apierr.ErrInvalid("id or ulid is required")
	}
	var r *Request
	var err error
	if id, perr := strconv.ParseInt(key, 10, 64); perr == nil && id > 0 {
		r, err = s.store.GetByID(ctx, id)
	} else {
		r, err = s.store.GetByULID(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	resp := buildRequestResponse(r)
	return &resp, nil
}

// 申請一覧
func (s *Service) List(ctx context.Context, f RequestFilter, p Page) ([]RequestResponse, int64, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RequestResponse, 0, len(items))
	for i := range items {
		out = append(out, buildRequestResponse(&items[i]))
	}
	return out, total, nil
}

// ===== helpers =====

func (s *Service) resolveID(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, apierr.ErrInvalid("id or ulid is required")
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return id, nil
	}
	r, err := s.store.GetByULID(ctx, key)
	if err != nil {
		return 0, err
	}
	return r.RequestID, nil
}

func buildRequestResponse(r *Request) RequestResponse {
	resp := RequestResponse{
		RequestID:   r.RequestID,
		RequestULID: r.RequestULID,
		EmployeeID:  r.EmployeeID,
		Category:    r.Category,
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt,
	}
	if r.Description.Valid {
		v := r.Description.String
		resp.Description = &v
	}
	if r.ApprovedAssetID.Valid {
		v := r.ApprovedAssetID.Int64
		resp.ApprovedAssetID = &v
	}
	if r.DecidedAt.Valid {
		v := r.DecidedAt.Time
		resp.DecidedAt = &v
	}
	return resp
}

func decisionResult(err error) string {
	switch apierr.CodeOf(err) {
	case apierr.CodeConflict:
		return "conflict"
	case apierr.CodeInvalidState:
		return "invalid_state"
	case apierr.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
