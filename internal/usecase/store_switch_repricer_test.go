package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

const testListID = "list-1"

func newTestRepricer(ledger *PriceLedger, lists domain.ListRepository) *StoreSwitchRepricer {
	r := NewStoreSwitchRepricer(ledger, lists, SizeMatchConfig{}, zerolog.Nop())
	r.now = func() time.Time { return day(0) }
	return r
}

// switchLedger knows milk by the gallon at store-a and only in half gallons at store-b
func switchLedger() *PriceLedger {
	ledger, _ := newTestLedger()
	seed(ledger,
		observation("milk", "store-a", "1 gallon", 3.49, day(0)),
		observation("milk", "store-a", "64 fl oz", 2.29, day(0)),
		observation("milk", "store-b", "64 fl oz", 1.99, day(0)),
		observation("milk", "store-c", "3.5 l", 3.10, day(0)),
		observation("bread", "store-b", "", 2.25, day(0)),
		observation("bread", "store-a", "", 2.75, day(0)),
	)
	return ledger
}

func loadItem(t *testing.T, lists domain.ListRepository, id string) domain.ListItem {
	t.Helper()
	items, err := lists.ListItems(context.Background(), testListID)
	require.NoError(t, err)
	for _, item := range items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %s not found", id)
	return domain.ListItem{}
}

func TestStoreSwitchRepricer_PriceOverrideIsNoop(t *testing.T) {
	original := domain.ListItem{
		ID: "1", Name: "milk", Quantity: 1, Size: "1 gallon",
		EstimatedPrice: domain.Float64(5.00), PriceSource: domain.SourceManual, PriceOverride: true,
	}
	lists := NewMockListRepository(testListID, original)
	repricer := newTestRepricer(switchLedger(), lists)

	for _, store := range []string{"store-b", "store-a", "store-c", "store-b"} {
		res, err := repricer.SwitchStore(context.Background(), testListID, store)
		require.NoError(t, err)
		assert.Equal(t, 1, res.ManualOverridesPreserved)
		assert.Equal(t, 0, res.ItemsUpdated)
	}

	got := loadItem(t, lists, "1")
	assert.Equal(t, original.Size, got.Size)
	assert.Equal(t, 5.00, got.Price())
	assert.Empty(t, lists.savedBatch)
}

func TestStoreSwitchRepricer_RoundTripRestoresOriginalSize(t *testing.T) {
	lists := NewMockListRepository(testListID, domain.ListItem{
		ID: "1", Name: "Milk", Quantity: 1, Size: "1 gallon", Unit: "gallon",
		EstimatedPrice: domain.Float64(3.49), PriceSource: domain.SourceCrowdsourced, PricedStoreID: "store-a",
	})
	repricer := newTestRepricer(switchLedger(), lists)
	ctx := context.Background()

	toB, err := repricer.SwitchStore(ctx, testListID, "store-b")
	require.NoError(t, err)
	atB := loadItem(t, lists, "1")
	assert.Equal(t, "64 fl oz", atB.Size)
	assert.Equal(t, "fl oz", atB.Unit)
	assert.Equal(t, "1 gallon", atB.OriginalSize)
	assert.Equal(t, 1.99, atB.Price())
	assert.Equal(t, "store-b", atB.PricedStoreID)
	require.Len(t, toB.SizeChanges, 1)
	assert.False(t, toB.SizeChanges[0].Restored)

	toA, err := repricer.SwitchStore(ctx, testListID, "store-a")
	require.NoError(t, err)
	atA := loadItem(t, lists, "1")
	assert.Equal(t, "1 gallon", atA.Size)
	assert.Equal(t, "gallon", atA.Unit)
	assert.Empty(t, atA.OriginalSize)
	assert.Equal(t, 3.49, atA.Price())
	require.Len(t, toA.SizeChanges, 1)
	assert.True(t, toA.SizeChanges[0].Restored)
}

func TestStoreSwitchRepricer_SizelessItemStaysSizeless(t *testing.T) {
	lists := NewMockListRepository(testListID, domain.ListItem{
		ID: "1", Name: "milk", Quantity: 1,
		EstimatedPrice: domain.Float64(3.00), PriceSource: domain.SourceCrowdsourced, PricedStoreID: "store-a",
	})
	repricer := newTestRepricer(switchLedger(), lists)
	ctx := context.Background()

	steps := []struct {
		store string
		price float64
	}{
		{"store-b", 1.99},
		{"store-a", 2.29},
	}

	for _, step := range steps {
		res, err := repricer.SwitchStore(ctx, testListID, step.store)
		require.NoError(t, err)
		assert.Empty(t, res.SizeChanges)

		got := loadItem(t, lists, "1")
		assert.Empty(t, got.Size, "switch to %s", step.store)
		assert.Empty(t, got.Unit)
		assert.Empty(t, got.OriginalSize)
		assert.Equal(t, step.price, got.Price())
		assert.Equal(t, step.store, got.PricedStoreID)
	}
}

func TestStoreSwitchRepricer_OriginalSizeNeverOverwritten(t *testing.T) {
	lists := NewMockListRepository(testListID, domain.ListItem{
		ID: "1", Name: "milk", Quantity: 1, Size: "1 gallon", PricedStoreID: "store-a",
	})
	repricer := newTestRepricer(switchLedger(), lists)
	ctx := context.Background()

	_, err := repricer.SwitchStore(ctx, testListID, "store-b")
	require.NoError(t, err)
	_, err = repricer.SwitchStore(ctx, testListID, "store-c")
	require.NoError(t, err)

	atC := loadItem(t, lists, "1")
	assert.Equal(t, "3.5 l", atC.Size, "tolerance match for the original gallon")
	assert.Equal(t, "1 gallon", atC.OriginalSize)
	assert.Equal(t, 3.10, atC.Price())
}

func TestStoreSwitchRepricer_SizeOverride(t *testing.T) {
	item := domain.ListItem{
		ID: "1", Name: "milk", Quantity: 1, Size: "1 gallon", SizeOverride: true,
		EstimatedPrice: domain.Float64(4.00), PricedStoreID: "store-z",
	}

	t.Run("no exact size keeps the item", func(t *testing.T) {
		lists := NewMockListRepository(testListID, item)
		res, err := newTestRepricer(switchLedger(), lists).SwitchStore(context.Background(), testListID, "store-b")
		require.NoError(t, err)

		assert.Equal(t, 0, res.ItemsUpdated)
		got := loadItem(t, lists, "1")
		assert.Equal(t, "1 gallon", got.Size)
		assert.Equal(t, 4.00, got.Price())
	})

	t.Run("exact size reprices only", func(t *testing.T) {
		lists := NewMockListRepository(testListID, item)
		res, err := newTestRepricer(switchLedger(), lists).SwitchStore(context.Background(), testListID, "store-a")
		require.NoError(t, err)

		assert.Equal(t, 1, res.ItemsUpdated)
		require.Len(t, res.PriceChanges, 1)
		assert.Equal(t, 4.00, *res.PriceChanges[0].OldPrice)
		assert.Equal(t, 3.49, res.PriceChanges[0].NewPrice)
		assert.Empty(t, res.SizeChanges)

		got := loadItem(t, lists, "1")
		assert.Equal(t, "1 gallon", got.Size)
		assert.Empty(t, got.OriginalSize)
		assert.Equal(t, 3.49, got.Price())
	})
}

func TestStoreSwitchRepricer_Totals(t *testing.T) {
	lists := NewMockListRepository(testListID,
		domain.ListItem{ID: "1", Name: "milk", Quantity: 2, Size: "64 fl oz", EstimatedPrice: domain.Float64(2.29), PricedStoreID: "store-a"},
		domain.ListItem{ID: "2", Name: "bread", Quantity: 1, EstimatedPrice: domain.Float64(2.75), PricedStoreID: "store-a"},
		domain.ListItem{ID: "3", Name: "saffron", Quantity: 1, EstimatedPrice: domain.Float64(9.00)},
	)
	repricer := newTestRepricer(switchLedger(), lists)

	res, err := repricer.SwitchStore(context.Background(), testListID, "store-b")

	require.NoError(t, err)
	assert.Equal(t, testListID, res.ListID)
	assert.Equal(t, 2, res.ItemsUpdated)
	assert.Len(t, res.PriceChanges, 2)
	assert.Empty(t, res.SizeChanges)
	assert.InDelta(t, 16.33, res.PreviousTotal, 1e-9)
	assert.InDelta(t, 15.23, res.NewTotal, 1e-9)
	assert.InDelta(t, 1.10, res.Savings, 1e-9)

	saffron := loadItem(t, lists, "3")
	assert.Equal(t, 9.00, saffron.Price(), "items without data at the store keep their price")

	require.Len(t, lists.savedBatch, 1, "changes are written in one batch")
	assert.Len(t, lists.savedBatch[0], 2)
}

func TestStoreSwitchRepricer_ItemFailureIsReported(t *testing.T) {
	store := NewMockLedgerStore()
	ledger := NewPriceLedger(store, nil, LedgerConfig{}, zerolog.Nop())
	seed(ledger, observation("milk", "store-b", "64 fl oz", 1.99, day(0)))
	store.listErrorFor["bread"] = domain.ErrStorageUnavailable

	lists := NewMockListRepository(testListID,
		domain.ListItem{ID: "1", Name: "milk", Size: "64 fl oz", EstimatedPrice: domain.Float64(2.29)},
		domain.ListItem{ID: "2", Name: "bread", EstimatedPrice: domain.Float64(2.75)},
	)
	res, err := newTestRepricer(ledger, lists).SwitchStore(context.Background(), testListID, "store-b")

	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsUpdated)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "2", res.Failures[0].ItemID)
	assert.Equal(t, 1.99, loadItem(t, lists, "1").Price())
	assert.Equal(t, 2.75, loadItem(t, lists, "2").Price())
}

func TestStoreSwitchRepricer_BatchFailureWritesNothing(t *testing.T) {
	lists := NewMockListRepository(testListID,
		domain.ListItem{ID: "1", Name: "milk", Size: "64 fl oz", EstimatedPrice: domain.Float64(2.29)},
		domain.ListItem{ID: "2", Name: "bread", EstimatedPrice: domain.Float64(2.75)},
	)
	lists.saveError = domain.ErrStorageUnavailable

	_, err := newTestRepricer(switchLedger(), lists).SwitchStore(context.Background(), testListID, "store-b")

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 2.29, loadItem(t, lists, "1").Price())
	assert.Equal(t, 2.75, loadItem(t, lists, "2").Price())
}

func TestStoreSwitchRepricer_InvalidRequests(t *testing.T) {
	lists := NewMockListRepository(testListID)
	repricer := newTestRepricer(switchLedger(), lists)

	_, err := repricer.SwitchStore(context.Background(), "", "store-a")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = repricer.SwitchStore(context.Background(), testListID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = repricer.SwitchStore(context.Background(), "missing", "store-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
