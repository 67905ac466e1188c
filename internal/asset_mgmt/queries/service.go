package queries

import (
	"context"
	"database/sql"
	"strings"

	"HRAM-backend/internal/platform/apierr"
)

// viewStore は Service が使う読み取り層
type viewStore interface {
	AvailableAssets(ctx context.Context, category *string) ([]AvailableAssetView, error)
	OpenAllocationsByEmployee(ctx context.Context, employeeID string) ([]OpenAllocationView, error)
	PendingRequests(ctx context.Context) ([]PendingRequestView, error)
}

type Service struct {
	store viewStore
}

func NewService(db *sql.DB) *Service { return newService(NewStore(db)) }

func newService(store viewStore) *Service { return &Service{store: store} }

func (s *Service) AvailableAssets(ctx context.Context, category *string) ([]AvailableAssetView, error) {
	return s.store.AvailableAssets(ctx, category)
}

func (s *Service) OpenAllocationsByEmployee(ctx context.Context, employeeID string) ([]OpenAllocationView, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, apierr.ErrInvalid("employee_id is required")
	}
	return s.store.OpenAllocationsByEmployee(ctx, employeeID)
}

func (s *Service) PendingRequests(ctx context.Context) ([]PendingRequestView, error) {
	return s.store.PendingRequests(ctx)
}
