package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

type mockSnapshots struct {
	m    sync.Mutex
	data map[domain.ItemKey]domain.ProductSnapshot
}

func (s *mockSnapshots) BatchSnapshots(_ context.Context, keys []domain.ItemKey) map[domain.ItemKey]domain.ProductSnapshot {
	s.m.Lock()
	defer s.m.Unlock()
	out := make(map[domain.ItemKey]domain.ProductSnapshot)
	for _, key := range keys {
		if snap, ok := s.data[key]; ok {
			out[key] = snap
		}
	}
	return out
}

func newTestStore(data map[domain.ItemKey]domain.ProductSnapshot) *Store {
	return NewStore(&mockSnapshots{data: data})
}

func testItem(productID int64, qty int32, price string) domain.CartItem {
	return domain.CartItem{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestAddItem_MergesAndNeverDuplicatesKeys(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), 2))
	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), 3))

	cart := store.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(5), cart.Items[0].Quantity)
}

func TestAddItem_NegativeQuantityDecrements(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), 3))
	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), -1))

	assert.Equal(t, int32(2), store.Cart().Items[0].Quantity)
}

func TestAddItem_MergeToZeroRemovesLine(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), 2))
	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), -2))
	// Deleting again must stay a no-op.
	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), -2))

	assert.Empty(t, store.Cart().Items)
}

func TestAddItem_ClampsToFreshStock(t *testing.T) {
	store := newTestStore(map[domain.ItemKey]domain.ProductSnapshot{
		{ProductID: 1}: {Price: decimal.NewFromInt(10), Stock: 2},
	})

	require.NoError(t, store.AddItem(context.Background(), testItem(1, 0, "10"), 3))

	cart := store.Cart()
	assert.Equal(t, int32(2), cart.Items[0].Quantity)
	warnings := store.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarningQuantityCapped, warnings[0].Type)
}

func TestUpdateQuantity_RejectsNonPositive(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), 1))

	assert.ErrorIs(t, store.UpdateQuantity(ctx, domain.ItemKey{ProductID: 1}, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, store.UpdateQuantity(ctx, domain.ItemKey{ProductID: 1}, -4), ErrInvalidQuantity)
	assert.Equal(t, int32(1), store.Cart().Items[0].Quantity)
}

func TestUpdateQuantity_UnknownKey(t *testing.T) {
	store := newTestStore(nil)

	err := store.UpdateQuantity(context.Background(), domain.ItemKey{ProductID: 42}, 1)

	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateQuantity_ClampsAboveStockInsteadOfRejecting(t *testing.T) {
	store := newTestStore(map[domain.ItemKey]domain.ProductSnapshot{
		{ProductID: 1}: {Price: decimal.NewFromInt(10), Stock: 4},
	})
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), 1))

	require.NoError(t, store.UpdateQuantity(ctx, domain.ItemKey{ProductID: 1}, 9))

	assert.Equal(t, int32(4), store.Cart().Items[0].Quantity)
	warnings := store.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarningQuantityCapped, warnings[0].Type)
}

func TestRemoveItem_AbsentKeyIsNoop(t *testing.T) {
	store := newTestStore(nil)

	store.RemoveItem(context.Background(), domain.ItemKey{ProductID: 7})

	assert.Empty(t, store.Cart().Items)
}

func TestReplaceAll_MergesDuplicateInputKeys(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, testItem(9, 0, "1"), 1))

	store.ReplaceAll(ctx, []domain.CartItem{
		testItem(1, 2, "10"),
		testItem(2, 1, "20"),
		testItem(1, 1, "10"),
	})

	cart := store.Cart()
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int32(3), cart.Items[0].Quantity)
	assert.Equal(t, int64(2), cart.Items[1].ProductID)
}

func TestClear(t *testing.T) {
	store := newTestStore(map[domain.ItemKey]domain.ProductSnapshot{
		{ProductID: 1}: {Price: decimal.NewFromInt(99), Stock: 10},
	})
	ctx := context.Background()
	require.NoError(t, store.AddItem(ctx, testItem(1, 0, "10"), 1))

	store.Clear(ctx)

	assert.Empty(t, store.Cart().Items)
	assert.Empty(t, store.Warnings())
}

func TestWarnings_UnknownStockNeverReportsOutOfStock(t *testing.T) {
	store := newTestStore(nil)

	require.NoError(t, store.AddItem(context.Background(), testItem(1, 0, "10"), 50))

	assert.Empty(t, store.Warnings())
}

func TestStore_NoDuplicateKeysAndNoNonPositiveQuantities(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	ops := []func(){
		func() { _ = store.AddItem(ctx, testItem(1, 0, "10"), 2) },
		func() { _ = store.AddItem(ctx, testItem(2, 0, "5"), 1) },
		func() { _ = store.AddItem(ctx, testItem(1, 0, "10"), -1) },
		func() { _ = store.UpdateQuantity(ctx, domain.ItemKey{ProductID: 2}, 7) },
		func() { store.RemoveItem(ctx, domain.ItemKey{ProductID: 3}) },
		func() { _ = store.AddItem(ctx, testItem(2, 0, "5"), -99) },
		func() { _ = store.AddItem(ctx, testItem(3, 0, "2"), 4) },
	}
	for _, op := range ops {
		op()

		cart := store.Cart()
		seen := map[domain.ItemKey]bool{}
		for _, it := range cart.Items {
			assert.False(t, seen[it.Key()], "duplicate key %s", it.Key())
			seen[it.Key()] = true
			assert.Positive(t, it.Quantity)
		}
	}
}
