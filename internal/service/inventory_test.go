package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/repository/memory"
	"github.com/shestoi/stocksync/internal/stock"
)

func newInventory(products ...repository.Product) (*InventoryService, *memory.MemoryRepository) {
	store := memory.NewMemoryRepository(products...)
	return NewInventoryService(zap.NewNop(), store, NewRebalancer(zap.NewNop(), store)), store
}

func TestInventoryService_GetStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newInventory(
		repository.Product{ID: "a", SKU: "A", ManageStock: true, LocalStock: 7, ExternalStock: 3, StockStatus: stock.StatusOutOfStock},
		repository.Product{ID: "b", SKU: "B", ManageStock: true, LocalStock: -4, ExternalStock: 0, StockStatus: stock.StatusInStock},
		repository.Product{ID: "c", SKU: "C", LocalStock: -2, ExternalStock: 9, StockStatus: stock.StatusInStock},
		repository.Product{ID: "d", SKU: "D", ManageStock: true, StockStatus: stock.StatusOnBackorder},
		repository.Product{ID: "parent", SKU: "P", ManageStock: true, LocalStock: 1, ExternalStock: 2, StockStatus: stock.StatusInStock},
		repository.Product{ID: "var", SKU: "V", ParentID: "parent", StockStatus: stock.StatusOutOfStock},
	)

	tests := []struct {
		sku            string
		expectCombined int64
		expectStatus   stock.Status
	}{
		{sku: "A", expectCombined: 10, expectStatus: stock.StatusInStock},
		{sku: "B", expectCombined: 0, expectStatus: stock.StatusOutOfStock},
		{sku: "C", expectCombined: -2, expectStatus: stock.StatusInStock},
		{sku: "D", expectCombined: 0, expectStatus: stock.StatusOnBackorder},
		{sku: "V", expectCombined: 3, expectStatus: stock.StatusInStock},
	}

	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			view, err := svc.GetStock(ctx, tt.sku)
			require.NoError(t, err)
			require.Equal(t, tt.sku, view.SKU)
			require.Equal(t, tt.expectCombined, view.CombinedStock)
			require.Equal(t, tt.expectStatus, view.Status)
		})
	}

	_, err := svc.GetStock(ctx, "NOPE")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInventoryService_SetExternalStock_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store := newInventory(repository.Product{ID: "a", SKU: "A", ManageStock: true, LocalStock: 7})

	view, err := svc.SetExternalStock(ctx, "A", 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), view.ExternalStock)
	require.Equal(t, int64(10), view.CombinedStock)

	view, err = svc.SetExternalStock(ctx, "A", -5)
	require.NoError(t, err)
	require.Equal(t, int64(0), view.ExternalStock)

	p, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(0), p.ExternalStock)
}

func TestInventoryService_ReduceStock(t *testing.T) {
	ctx := context.Background()

	t.Run("reduction rebalances in one save", func(t *testing.T) {
		svc, store := newInventory(repository.Product{ID: "a", SKU: "A", ManageStock: true, LocalStock: 2, ExternalStock: 5})

		view, err := svc.ReduceStockBySKU(ctx, "o-1", "A", 5)
		require.NoError(t, err)
		require.Equal(t, int64(0), view.LocalStock)
		require.Equal(t, int64(2), view.ExternalStock)
		require.Equal(t, int64(2), view.CombinedStock)

		p, err := store.Load(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, int64(0), p.LocalStock)
		require.Equal(t, int64(2), p.ExternalStock)
	})

	t.Run("oversell leaves negative local once external is exhausted", func(t *testing.T) {
		svc, _ := newInventory(repository.Product{ID: "a", SKU: "A", ManageStock: true, LocalStock: 1, ExternalStock: 1})

		view, err := svc.ReduceStockBySKU(ctx, "o-1", "A", 4)
		require.NoError(t, err)
		require.Equal(t, int64(-2), view.LocalStock)
		require.Equal(t, int64(0), view.ExternalStock)
		require.Equal(t, int64(0), view.CombinedStock)
	})

	t.Run("variation reduces parent", func(t *testing.T) {
		svc, store := newInventory(
			repository.Product{ID: "parent", SKU: "P", ManageStock: true, LocalStock: 1, ExternalStock: 3},
			repository.Product{ID: "var", SKU: "V", ParentID: "parent"},
		)

		view, err := svc.ReduceStock(ctx, repository.LineItem{OrderID: "o-1", ProductID: "parent", VariationID: "var", Quantity: 2})
		require.NoError(t, err)
		require.Equal(t, "V", view.SKU)
		require.Equal(t, int64(2), view.CombinedStock)

		parent, err := store.Load(ctx, "parent")
		require.NoError(t, err)
		require.Equal(t, int64(0), parent.LocalStock)
		require.Equal(t, int64(2), parent.ExternalStock)
	})

	t.Run("unmanaged stock is untouched", func(t *testing.T) {
		svc, store := newInventory(repository.Product{ID: "a", SKU: "A", LocalStock: 3})

		_, err := svc.ReduceStockBySKU(ctx, "o-1", "A", 2)
		require.NoError(t, err)

		p, err := store.Load(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, int64(3), p.LocalStock)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		svc, _ := newInventory(repository.Product{ID: "a", SKU: "A", ManageStock: true})
		_, err := svc.ReduceStockBySKU(ctx, "o-1", "A", 0)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("concurrent reductions are serialised", func(t *testing.T) {
		svc, store := newInventory(repository.Product{ID: "a", SKU: "A", ManageStock: true, LocalStock: 50, ExternalStock: 50})

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.ReduceStockBySKU(ctx, "o", "A", 3)
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		p, err := store.Load(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, int64(40), p.LocalStock+p.ExternalStock)
		require.Equal(t, int64(0), p.LocalStock)
	})
}

func TestInventoryService_CanReserve(t *testing.T) {
	ctx := context.Background()
	svc, _ := newInventory(
		repository.Product{ID: "a", SKU: "A", ManageStock: true, LocalStock: 2, ExternalStock: 3},
		repository.Product{ID: "b", SKU: "B", LocalStock: 0},
	)

	ok, err := svc.CanReserve(ctx, "A", 5)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.CanReserve(ctx, "A", 6)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.CanReserve(ctx, "B", 100)
	require.NoError(t, err)
	require.True(t, ok)
}
