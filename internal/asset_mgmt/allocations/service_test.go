package allocations

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"HRAM-backend/internal/platform/apierr"
)

// ===== テスト用のメモリ実装 =====
// MySQL版storeの契約（CASと行ロックによる直列化）をミューテックスで再現する。

type memLedger struct {
	mu     sync.Mutex
	assets map[int64]string // asset_id -> status
	allocs map[int64]*Allocation
	nextID int64
}

func newMemLedger(assets map[int64]string) *memLedger {
	return &memLedger{assets: assets, allocs: map[int64]*Allocation{}}
}

func (m *memLedger) ExecAllocate(_ context.Context, a *Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.assets[a.AssetID]
	if !ok {
		return apierr.ErrNotFound("asset not found")
	}
	if st != "available" {
		return apierr.ErrConflict(fmt.Sprintf("asset %d is not available (status=%s)", a.AssetID, st))
	}
	m.assets[a.AssetID] = "allocated"
	m.nextID++
	a.AllocationID = m.nextID
	cp := *a
	m.allocs[a.AllocationID] = &cp
	return nil
}

func (m *memLedger) ExecReturn(_ context.Context, cmd ReturnCmd) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[cmd.AllocationID]
	if !ok {
		return nil, apierr.ErrNotFound("allocation not found")
	}
	if a.ReturnedAt.Valid {
		return nil, apierr.ErrAlreadyReturned("allocation already returned")
	}
	if m.assets[a.AssetID] != "allocated" {
		return nil, apierr.ErrInternal("asset status out of sync with ledger")
	}
	a.ReturnedAt = sql.NullTime{Time: cmd.ReturnedAt, Valid: true}
	a.ConditionOnReturn = cmd.ConditionOnReturn
	if cmd.Damaged {
		m.assets[a.AssetID] = "damaged"
	} else {
		m.assets[a.AssetID] = "available"
	}
	cp := *a
	return &cp, nil
}

func (m *memLedger) GetByID(_ context.Context, id int64) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[id]
	if !ok {
		return nil, apierr.ErrNotFound("allocation not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memLedger) GetByULID(_ context.Context, ulid string) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.allocs {
		if a.AllocationULID == ulid {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apierr.ErrNotFound("allocation not found")
}

func (m *memLedger) List(_ context.Context, f AllocationFilter, _ Page) ([]Allocation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Allocation
	for id := int64(1); id <= m.nextID; id++ {
		a, ok := m.allocs[id]
		if !ok {
			continue
		}
		if f.EmployeeID != nil && a.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.AssetID != nil && a.AssetID != *f.AssetID {
			continue
		}
		if f.Open != nil && *f.Open == a.ReturnedAt.Valid {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

// openCount は資産ごとの貸与中行数（不変条件の検証用）
func (m *memLedger) openCount(assetID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.allocs {
		if a.AssetID == assetID && !a.ReturnedAt.Valid {
			n++
		}
	}
	return n
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("01TESTALLOCATION%010d", g.n), nil
}

func newTestService(store ledgerStore) *Service {
	return newService(store, fixedClock{t: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}, &seqIDGen{})
}

func strPtr(s string) *string { return &s }

// ===== Allocate =====

func TestAllocate(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing employee_id", func(t *testing.T) {
		svc := newTestService(newMemLedger(map[int64]string{1: "available"}))
		_, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: 1, EmployeeID: "  "})
		if apierr.CodeOf(err) != apierr.CodeInvalidArgument {
			t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
		}
	})

	t.Run("rejects non-positive asset_id", func(t *testing.T) {
		svc := newTestService(newMemLedger(map[int64]string{}))
		_, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: 0, EmployeeID: "E-100"})
		if apierr.CodeOf(err) != apierr.CodeInvalidArgument {
			t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
		}
	})

	t.Run("rejects malformed allocated_on", func(t *testing.T) {
		svc := newTestService(newMemLedger(map[int64]string{1: "available"}))
		_, err := svc.Allocate(ctx, CreateAllocationRequest{
			AssetID: 1, EmployeeID: "E-100", AllocatedOn: strPtr("2025/04/01"),
		})
		if apierr.CodeOf(err) != apierr.CodeInvalidArgument {
			t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
		}
	})

	t.Run("allocates an available asset and opens exactly one row", func(t *testing.T) {
		store := newMemLedger(map[int64]string{1: "available"})
		svc := newTestService(store)

		res, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: 1, EmployeeID: "E-100"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ReturnedAt != nil {
			t.Fatal("new allocation must be open (returned_at null)")
		}
		if res.ConditionOnCheckout != defaultCondition {
			t.Fatalf("expected default condition %q, got %q", defaultCondition, res.ConditionOnCheckout)
		}
		if store.assets[1] != "allocated" {
			t.Fatalf("asset status = %s, want allocated", store.assets[1])
		}
		if n := store.openCount(1); n != 1 {
			t.Fatalf("open allocations = %d, want 1", n)
		}
	})

	t.Run("NOT_FOUND for unknown asset", func(t *testing.T) {
		svc := newTestService(newMemLedger(map[int64]string{}))
		_, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: 42, EmployeeID: "E-100"})
		if apierr.CodeOf(err) != apierr.CodeNotFound {
			t.Fatalf("expected NOT_FOUND, got %v", err)
		}
	})

	t.Run("CONFLICT when the asset is not available", func(t *testing.T) {
		for _, st := range []string{"allocated", "damaged", "maintenance"} {
			svc := newTestService(newMemLedger(map[int64]string{7: st}))
			_, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: 7, EmployeeID: "E-100"})
			if apierr.CodeOf(err) != apierr.CodeConflict {
				t.Fatalf("status %s: expected CONFLICT, got %v", st, err)
			}
		}
	})
}

// 同一資産への同時確保はちょうど1件だけ成功し、残りは全てCONFLICT。
func TestAllocateRace(t *testing.T) {
	ctx := context.Background()
	store := newMemLedger(map[int64]string{7: "available"})
	svc := newTestService(store)

	const workers = 16
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Allocate(ctx, CreateAllocationRequest{
				AssetID:    7,
				EmployeeID: fmt.Sprintf("E-%03d", n),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	okCount, conflictCount := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		case apierr.CodeOf(err) == apierr.CodeConflict:
			conflictCount++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if okCount != 1 || conflictCount != workers-1 {
		t.Fatalf("ok=%d conflict=%d, want 1/%d", okCount, conflictCount, workers-1)
	}
	if n := store.openCount(7); n != 1 {
		t.Fatalf("open allocations = %d, want 1", n)
	}
}

// ===== Return =====

func TestReturn(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *memLedger, int64) {
		t.Helper()
		store := newMemLedger(map[int64]string{1: "available"})
		svc := newTestService(store)
		res, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: 1, EmployeeID: "E-100"})
		if err != nil {
			t.Fatalf("setup allocate: %v", err)
		}
		return svc, store, res.AllocationID
	}

	t.Run("round trip leaves the asset available again", func(t *testing.T) {
		svc, store, allocID := setup(t)

		res, err := svc.Return(ctx, CreateReturnRequest{AllocationID: allocID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ReturnedAt == nil {
			t.Fatal("returned_at must be set")
		}
		if store.assets[1] != "available" {
			t.Fatalf("asset status = %s, want available", store.assets[1])
		}
		if n := store.openCount(1); n != 0 {
			t.Fatalf("open allocations = %d, want 0", n)
		}

		// 履歴には返却済みの行として残る
		items, _, err := svc.ListByEmployee(ctx, "E-100", nil, Page{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 1 || items[0].ReturnedAt == nil {
			t.Fatalf("expected one closed allocation in history, got %+v", items)
		}
	})

	t.Run("second return fails with ALREADY_RETURNED and changes nothing", func(t *testing.T) {
		svc, store, allocID := setup(t)

		first, err := svc.Return(ctx, CreateReturnRequest{AllocationID: allocID})
		if err != nil {
			t.Fatalf("first return: %v", err)
		}
		_, err = svc.Return(ctx, CreateReturnRequest{AllocationID: allocID})
		if apierr.CodeOf(err) != apierr.CodeAlreadyReturned {
			t.Fatalf("expected ALREADY_RETURNED, got %v", err)
		}

		after, err := svc.GetByKey(ctx, fmt.Sprint(allocID))
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !after.ReturnedAt.Equal(*first.ReturnedAt) {
			t.Fatalf("returned_at changed: %v -> %v", first.ReturnedAt, after.ReturnedAt)
		}
		if store.assets[1] != "available" {
			t.Fatalf("asset status = %s, want available", store.assets[1])
		}
	})

	t.Run("damaged return flips the asset to damaged", func(t *testing.T) {
		svc, store, allocID := setup(t)

		_, err := svc.Return(ctx, CreateReturnRequest{
			AllocationID: allocID,
			Damaged:      true,
			Condition:    strPtr("screen cracked"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.assets[1] != "damaged" {
			t.Fatalf("asset status = %s, want damaged", store.assets[1])
		}
	})

	t.Run("NOT_FOUND for unknown allocation", func(t *testing.T) {
		svc := newTestService(newMemLedger(map[int64]string{}))
		_, err := svc.Return(ctx, CreateReturnRequest{AllocationID: 99})
		if apierr.CodeOf(err) != apierr.CodeNotFound {
			t.Fatalf("expected NOT_FOUND, got %v", err)
		}
	})
}

func TestListByEmployee(t *testing.T) {
	ctx := context.Background()
	store := newMemLedger(map[int64]string{1: "available", 2: "available", 3: "available"})
	svc := newTestService(store)

	for _, assetID := range []int64{1, 2} {
		if _, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: assetID, EmployeeID: "E-100"}); err != nil {
			t.Fatalf("allocate asset %d: %v", assetID, err)
		}
	}
	if _, err := svc.Allocate(ctx, CreateAllocationRequest{AssetID: 3, EmployeeID: "E-200"}); err != nil {
		t.Fatalf("allocate asset 3: %v", err)
	}

	t.Run("requires employee_id", func(t *testing.T) {
		_, _, err := svc.ListByEmployee(ctx, "", nil, Page{})
		if apierr.CodeOf(err) != apierr.CodeInvalidArgument {
			t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
		}
	})

	t.Run("filters by employee", func(t *testing.T) {
		items, total, err := svc.ListByEmployee(ctx, "E-100", nil, Page{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 2 || len(items) != 2 {
			t.Fatalf("expected 2 allocations for E-100, got %d", len(items))
		}
		for _, it := range items {
			if it.EmployeeID != "E-100" {
				t.Fatalf("foreign employee in result: %+v", it)
			}
		}
	})

	t.Run("open filter", func(t *testing.T) {
		if _, err := svc.Return(ctx, CreateReturnRequest{AllocationID: 1}); err != nil {
			t.Fatalf("return: %v", err)
		}
		open := true
		items, _, err := svc.ListByEmployee(ctx, "E-100", &open, Page{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 || items[0].ReturnedAt != nil {
			t.Fatalf("expected exactly one open allocation, got %+v", items)
		}
	})
}
