package registry

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	ulid "github.com/oklog/ulid/v2"

	"HRAM-backend/internal/platform/apierr"
)

// assetStore は Service が使う永続化層。本番は *Store(MySQL)、テストはメモリ実装。
type assetStore interface {
	Insert(ctx context.Context, a *Asset) error
	GetByID(ctx context.Context, id int64) (*Asset, error)
	List(ctx context.Context, f AssetSearchQuery, p Page) ([]Asset, int64, error)
	UpdateFields(ctx context.Context, id int64, in UpdateAssetRequest) error
	UpdateStatusUnlessAllocated(ctx context.Context, id int64, to Status) (bool, error)
	ListAll(ctx context.Context) ([]Asset, error)
}

type Service struct {
	store assetStore
}

func NewService(db *sql.DB) *Service { return newService(NewStore(db)) }

func newService(store assetStore) *Service { return &Service{store: store} }

func (s *Service) CreateAsset(ctx context.Context, in CreateAssetRequest) (AssetResponse, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" {
		return AssetResponse{}, apierr.ErrInvalid("name and category are required")
	}

	a := &Asset{
		AssetULID: ulid.Make().String(),
		Name:      strings.TrimSpace(in.Name),
		Category:  strings.TrimSpace(in.Category),
		LotNumber: toNullString(in.LotNumber),
		Notes:     toNullString(in.Notes),
		Status:    StatusAvailable,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return AssetResponse{}, err
	}

	// created_at 等はDB時刻なので取り直す
	out, err := s.store.GetByID(ctx, a.AssetID)
	if err != nil {
		return AssetResponse{}, err
	}
	return buildAssetResponse(out), nil
}

func (s *Service) GetAsset(ctx context.Context, id int64) (AssetResponse, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AssetResponse{}, apierr.ErrNotFound("asset not found")
		}
		return AssetResponse{}, err
	}
	return buildAssetResponse(a), nil
}

func (s *Service) ListAssets(ctx context.Context, f AssetSearchQuery, p Page) ([]AssetResponse, int64, error) {
	if f.Status != nil && !ValidStatus(*f.Status) {
		return nil, 0, apierr.ErrInvalid("unknown status: " + string(*f.Status))
	}
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AssetResponse, 0, len(items))
	for i := range items {
		out = append(out, buildAssetResponse(&items[i]))
	}
	return out, total, nil
}

// ListAvailable は status=available 固定の一覧（登録順）
func (s *Service) ListAvailable(ctx context.Context, category *string, p Page) ([]AssetResponse, int64, error) {
	st := StatusAvailable
	return s.ListAssets(ctx, AssetSearchQuery{Status: &st, Category: category}, p)
}

func (s *Service) UpdateAsset(ctx context.Context, id int64, in UpdateAssetRequest) (AssetResponse, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return AssetResponse{}, apierr.ErrInvalid("name must not be blank")
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) == "" {
		return AssetResponse{}, apierr.ErrInvalid("category must not be blank")
	}

	// ステータス変更は available / maintenance / damaged の間のみ。
	// allocated を書けるのは allocations のTxだけ。
	if in.Status != nil {
		to := Status(*in.Status)
		if !ValidStatus(to) || to == StatusAllocated {
			return AssetResponse{}, apierr.ErrInvalid("status must be one of available/maintenance/damaged")
		}
		ok, err := s.store.UpdateStatusUnlessAllocated(ctx, id, to)
		if err != nil {
			return AssetResponse{}, err
		}
		if !ok {
			// 行なし／貸与中／同値更新 を取り直して区別する
			cur, err := s.store.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return AssetResponse{}, apierr.ErrNotFound("asset not found")
				}
				return AssetResponse{}, err
			}
			if cur.Status == StatusAllocated {
				return AssetResponse{}, apierr.ErrInvalidState("asset is currently allocated")
			}
			// cur.Status == to の同値更新はそのまま成功扱い
		}
	}

	if err := s.store.UpdateFields(ctx, id, in); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AssetResponse{}, apierr.ErrNotFound("asset not found")
		}
		return AssetResponse{}, err
	}

	out, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AssetResponse{}, apierr.ErrNotFound("asset not found")
		}
		return AssetResponse{}, err
	}
	return buildAssetResponse(out), nil
}

// ===== helpers =====

func buildAssetResponse(a *Asset) AssetResponse {
	return AssetResponse{
		AssetID:   a.AssetID,
		AssetULID: a.AssetULID,
		Name:      a.Name,
		Category:  a.Category,
		LotNumber: nullToPtr(a.LotNumber),
		Notes:     nullToPtr(a.Notes),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toNullString(s *string) (ns sql.NullString) {
	if s != nil && strings.TrimSpace(*s) != "" {
		ns.Valid, ns.String = true, *s
	}
	return
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}
