package queries

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// ===== テスト用のメモリ実装 =====

type memViews struct {
	available []AvailableAssetView
	open      map[string][]OpenAllocationView
	pending   []PendingRequestView
}

func (m *memViews) AvailableAssets(_ context.Context, category *string) ([]AvailableAssetView, error) {
	if category == nil {
		return m.available, nil
	}
	var out []AvailableAssetView
	for _, v := range m.available {
		if v.Category == *category {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memViews) OpenAllocationsByEmployee(_ context.Context, employeeID string) ([]OpenAllocationView, error) {
	return m.open[employeeID], nil
}

func (m *memViews) PendingRequests(_ context.Context) ([]PendingRequestView, error) {
	return m.pending, nil
}

func newTestRouter(store viewStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), newService(store))
	return r
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestViews(t *testing.T) {
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	store := &memViews{
		available: []AvailableAssetView{
			{AssetID: 1, AssetULID: "01A", Name: "ThinkPad X1", Category: "laptop"},
			{AssetID: 2, AssetULID: "01B", Name: "EV2480", Category: "monitor"},
		},
		open: map[string][]OpenAllocationView{
			"E-100": {{
				AllocationID: 1, AllocationULID: "01C", AssetID: 3,
				AssetName: "MacBook Air", AssetCategory: "laptop",
				EmployeeID: "E-100", AllocatedAt: now, ConditionOnCheckout: "good",
			}},
		},
		pending: []PendingRequestView{
			{RequestID: 1, RequestULID: "01D", EmployeeID: "E-200", Category: "monitor", RequestedAt: now},
		},
	}
	r := newTestRouter(store)

	decodeItems := func(t *testing.T, w *httptest.ResponseRecorder, out any) {
		t.Helper()
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d (body=%s)", w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("body: %v", err)
		}
	}

	t.Run("available assets with category filter", func(t *testing.T) {
		var body struct {
			Items []AvailableAssetView `json:"items"`
		}
		decodeItems(t, get(t, r, "/api/v1/views/available-assets?category=laptop"), &body)
		if len(body.Items) != 1 || body.Items[0].Name != "ThinkPad X1" {
			t.Fatalf("unexpected items: %+v", body.Items)
		}
	})

	t.Run("open allocations by employee", func(t *testing.T) {
		var body struct {
			Items []OpenAllocationView `json:"items"`
		}
		decodeItems(t, get(t, r, "/api/v1/views/employees/E-100/open-allocations"), &body)
		if len(body.Items) != 1 || body.Items[0].AssetName != "MacBook Air" {
			t.Fatalf("unexpected items: %+v", body.Items)
		}
	})

	t.Run("empty result for unknown employee", func(t *testing.T) {
		var body struct {
			Items []OpenAllocationView `json:"items"`
		}
		decodeItems(t, get(t, r, "/api/v1/views/employees/E-999/open-allocations"), &body)
		if len(body.Items) != 0 {
			t.Fatalf("unexpected items: %+v", body.Items)
		}
	})

	t.Run("pending requests", func(t *testing.T) {
		var body struct {
			Items []PendingRequestView `json:"items"`
		}
		decodeItems(t, get(t, r, "/api/v1/views/requests/pending"), &body)
		if len(body.Items) != 1 || body.Items[0].EmployeeID != "E-200" {
			t.Fatalf("unexpected items: %+v", body.Items)
		}
	})
}
