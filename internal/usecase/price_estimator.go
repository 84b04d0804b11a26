package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// PriceEstimatorConfig holds configuration for the estimation pass
type PriceEstimatorConfig struct {
	CacheTTL time.Duration
}

// PriceEstimator fills items the cascade left without a price by asking the
// external estimator. Answers are cached per normalized name and store.
type PriceEstimator struct {
	client   domain.PriceEstimateClient
	cache    domain.EstimateCache
	lists    domain.ListRepository
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewPriceEstimator creates an estimator; cache may be nil
func NewPriceEstimator(
	client domain.PriceEstimateClient,
	cache domain.EstimateCache,
	lists domain.ListRepository,
	config PriceEstimatorConfig,
	logger zerolog.Logger,
) *PriceEstimator {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &PriceEstimator{
		client:   client,
		cache:    cache,
		lists:    lists,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "estimator").Logger(),
	}
}

// FillMissing estimates every item of the list that has no price and no price
// override. Estimator failures leave the item blank and are reported; the
// estimated items are saved in one batch.
func (e *PriceEstimator) FillMissing(ctx context.Context, listID string) (*domain.EstimateResult, error) {
	if listID == "" {
		return nil, domain.ErrInvalidRequest
	}

	items, err := e.lists.ListItems(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}

	result := &domain.EstimateResult{ListID: listID}
	var updated []domain.ListItem

	for _, item := range items {
		if item.PriceOverride || item.EstimatedPrice != nil {
			continue
		}

		estimate, err := e.estimate(ctx, item.Name, item.PricedStoreID)
		if err != nil {
			e.logger.Warn().Err(err).Str("item", item.ID).Msg("estimate failed")
			result.Failures = append(result.Failures, domain.ItemFailure{ItemID: item.ID, Name: item.Name, Error: err.Error()})
			continue
		}

		item.EstimatedPrice = domain.Float64(estimate.Price)
		item.PriceSource = domain.SourceAI
		item.PriceConfidence = domain.Float64(estimate.Confidence)
		if item.Size == "" && !item.SizeOverride && estimate.Size != "" {
			item.Size = estimate.Size
			item.Unit = estimate.Unit
		}
		updated = append(updated, item)
	}

	if len(updated) > 0 {
		if err := e.lists.SaveItems(ctx, listID, updated); err != nil {
			return nil, fmt.Errorf("failed to save estimated items for list %s: %w", listID, err)
		}
	}
	result.ItemsEstimated = len(updated)
	return result, nil
}

// estimate checks the cache before calling the estimator
func (e *PriceEstimator) estimate(ctx context.Context, name, storeID string) (*domain.PriceEstimate, error) {
	key := fmt.Sprintf("estimate:%s:%s", Normalize(name), storeID)

	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	estimate, err := e.client.Estimate(ctx, name, storeID)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, *estimate, e.cacheTTL); err != nil {
			e.logger.Debug().Err(err).Str("key", key).Msg("failed to cache estimate")
		}
	}
	return estimate, nil
}
