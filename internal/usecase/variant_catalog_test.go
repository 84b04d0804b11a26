package usecase

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/memory"
)

func TestVariantCatalog_Save(t *testing.T) {
	t.Run("stores under the normalized name and derives unit and category", func(t *testing.T) {
		store := memory.NewStore()
		catalog := NewVariantCatalog(store, zerolog.Nop())

		saved, err := catalog.Save(context.Background(), domain.Variant{
			BaseItem: "Organic Eggs", StoreID: "store-a", Size: " 12 ct ", Commonality: 0.7,
		})
		require.NoError(t, err)
		assert.Equal(t, "egg", saved.BaseItem)
		assert.Equal(t, "12 ct", saved.Size)
		assert.Equal(t, "ct", saved.Unit)
		assert.Equal(t, domain.CategoryCount, saved.Category)
		assert.Equal(t, "egg 12 ct", saved.VariantName)

		for _, spelling := range []string{"eggs", "EGGS", "the eggs"} {
			got, err := catalog.List(context.Background(), spelling, "store-a")
			require.NoError(t, err)
			require.Len(t, got, 1, spelling)
			assert.Equal(t, *saved, got[0])
		}
	})

	t.Run("unparseable size keeps an unknown category", func(t *testing.T) {
		catalog := NewVariantCatalog(memory.NewStore(), zerolog.Nop())

		saved, err := catalog.Save(context.Background(), domain.Variant{BaseItem: "soda", Size: "family size", Commonality: 0.2})
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryUnknown, saved.Category)
		assert.Empty(t, saved.Unit)
	})

	t.Run("rejects invalid variants", func(t *testing.T) {
		catalog := NewVariantCatalog(memory.NewStore(), zerolog.Nop())

		invalid := []domain.Variant{
			{BaseItem: "", Size: "1 l"},
			{BaseItem: "!!", Size: "1 l"},
			{BaseItem: "milk", Size: "  "},
			{BaseItem: "milk", Size: "1 l", Commonality: 1.5},
			{BaseItem: "milk", Size: "1 l", Commonality: -0.1},
			{BaseItem: "milk", Size: "1 l", EstimatedPrice: domain.Float64(0)},
		}
		for _, v := range invalid {
			_, err := catalog.Save(context.Background(), v)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest, "%+v", v)
		}
	})
}

func TestVariantCatalog_List(t *testing.T) {
	store := memory.NewStore()
	catalog := NewVariantCatalog(store, zerolog.Nop())
	ctx := context.Background()

	for _, v := range []domain.Variant{
		{BaseItem: "milk", Size: "64 fl oz", Commonality: 0.4},
		{BaseItem: "milk", Size: "1 gallon", Commonality: 0.9},
		{BaseItem: "milk", StoreID: "store-b", Size: "1 l", Commonality: 0.6},
	} {
		_, err := catalog.Save(ctx, v)
		require.NoError(t, err)
	}

	got, err := catalog.List(ctx, "Milk", "store-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1 gallon", got[0].Size)
	assert.Equal(t, "64 fl oz", got[1].Size)

	got, err = catalog.List(ctx, "milk", "store-b")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = catalog.List(ctx, "oat milk", "store-a")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = catalog.List(ctx, " ", "store-a")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	failing := NewVariantCatalog(&MockVariantRepository{err: domain.ErrStorageUnavailable}, zerolog.Nop())
	_, err = failing.List(ctx, "milk", "store-a")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestVariantCatalog_FeedsStoreVariantTier(t *testing.T) {
	ledger, store := newTestLedger()
	seed(ledger,
		observation("milk", "store-a", "1 gallon", 3.49, day(0)),
		observation("milk", "store-b", "1 gallon", 2.00, day(0)),
	)

	catalog := NewVariantCatalog(store, zerolog.Nop())
	_, err := catalog.Save(context.Background(), domain.Variant{BaseItem: "Milk", StoreID: "store-a", Size: "1 gallon", Commonality: 0.9})
	require.NoError(t, err)

	res, err := newTestCascade(ledger, store, store).Resolve(context.Background(), ResolveRequest{ItemName: "MILK", StoreID: "store-a"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierStoreVariant, res.PriceTier)
	assert.Equal(t, domain.TierStoreVariant, res.SizeTier)
	assert.Equal(t, "1 gallon", res.Size)
	require.NotNil(t, res.Price)
	assert.Equal(t, 3.49, *res.Price)
}
