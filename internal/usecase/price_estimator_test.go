package usecase

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

func TestPriceEstimator_FillMissing(t *testing.T) {
	client := &MockEstimateClient{estimates: map[string]domain.PriceEstimate{
		"Greek Yogurt": {Price: 5.49, Size: "32 oz", Unit: "oz", Confidence: 0.65},
		"Saffron":      {Price: 12.99, Confidence: 0.3},
	}}
	lists := NewMockListRepository(testListID,
		domain.ListItem{ID: "1", Name: "Greek Yogurt"},
		domain.ListItem{ID: "2", Name: "Saffron", Size: "1 g", SizeOverride: true},
		domain.ListItem{ID: "3", Name: "Milk", EstimatedPrice: domain.Float64(3.49), PriceSource: domain.SourceCrowdsourced},
		domain.ListItem{ID: "4", Name: "Truffle", PriceOverride: true},
		domain.ListItem{ID: "5", Name: "Dragonfruit"},
	)
	estimator := NewPriceEstimator(client, NewMockEstimateCache(), lists, PriceEstimatorConfig{}, zerolog.Nop())

	res, err := estimator.FillMissing(context.Background(), testListID)

	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsEstimated)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "5", res.Failures[0].ItemID)
	assert.Equal(t, 3, client.calls)

	yogurt := loadItem(t, lists, "1")
	assert.Equal(t, 5.49, yogurt.Price())
	assert.Equal(t, domain.SourceAI, yogurt.PriceSource)
	assert.Equal(t, 0.65, *yogurt.PriceConfidence)
	assert.Equal(t, "32 oz", yogurt.Size)

	saffron := loadItem(t, lists, "2")
	assert.Equal(t, 12.99, saffron.Price())
	assert.Equal(t, "1 g", saffron.Size, "size override is kept")

	assert.Equal(t, domain.SourceCrowdsourced, loadItem(t, lists, "3").PriceSource)
	assert.Nil(t, loadItem(t, lists, "4").EstimatedPrice)
	assert.Nil(t, loadItem(t, lists, "5").EstimatedPrice)
}

func TestPriceEstimator_UsesCache(t *testing.T) {
	client := &MockEstimateClient{estimates: map[string]domain.PriceEstimate{}}
	cache := NewMockEstimateCache()
	cache.data["estimate:egg:store-a"] = domain.PriceEstimate{Price: 3.99, Confidence: 0.5}

	lists := NewMockListRepository(testListID, domain.ListItem{ID: "1", Name: "Eggs", PricedStoreID: "store-a"})
	estimator := NewPriceEstimator(client, cache, lists, PriceEstimatorConfig{}, zerolog.Nop())

	res, err := estimator.FillMissing(context.Background(), testListID)

	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsEstimated)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, 3.99, loadItem(t, lists, "1").Price())
}

func TestPriceEstimator_CachesAnswers(t *testing.T) {
	client := &MockEstimateClient{estimates: map[string]domain.PriceEstimate{"bread": {Price: 2.49, Confidence: 0.4}}}
	cache := NewMockEstimateCache()
	lists := NewMockListRepository(testListID, domain.ListItem{ID: "1", Name: "bread"})

	_, err := NewPriceEstimator(client, cache, lists, PriceEstimatorConfig{}, zerolog.Nop()).FillMissing(context.Background(), testListID)

	require.NoError(t, err)
	assert.True(t, cache.setCalled)
	assert.Contains(t, cache.data, "estimate:bread:")
}

func TestPriceEstimator_Errors(t *testing.T) {
	client := &MockEstimateClient{}
	lists := NewMockListRepository(testListID, domain.ListItem{ID: "1", Name: "bread"})
	estimator := NewPriceEstimator(client, nil, lists, PriceEstimatorConfig{}, zerolog.Nop())

	_, err := estimator.FillMissing(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = estimator.FillMissing(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
