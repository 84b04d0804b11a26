package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/metrics"
)

// Fixed confidences of the history based tiers
const (
	defaultPersonalConfidence     = 0.8
	defaultCrowdsourcedConfidence = 0.6
)

// ResolveRequest asks for the best size and price of an item
type ResolveRequest struct {
	ItemName string `json:"itemName" binding:"required"`
	StoreID  string `json:"storeId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// CascadeConfig holds configuration for the resolution cascade
type CascadeConfig struct {
	PersonalConfidence     float64
	CrowdsourcedConfidence float64
	SizeMatch              SizeMatchConfig
	// Now is the clock used to decay store-variant confidence; defaults to time.Now
	Now func() time.Time
}

// ResolutionCascade resolves an item name to a size and price using, in
// order: store-aware variants, the user's purchase history, and the cheapest
// crowdsourced record for the name.
type ResolutionCascade struct {
	ledger                 *PriceLedger
	variants               domain.VariantRepository
	history                domain.PurchaseHistoryRepository
	personalConfidence     float64
	crowdsourcedConfidence float64
	sizeMatch              SizeMatchConfig
	now                    func() time.Time
	logger                 zerolog.Logger
}

// NewResolutionCascade creates a cascade. variants and history may be nil, in
// which case their tiers are skipped.
func NewResolutionCascade(
	ledger *PriceLedger,
	variants domain.VariantRepository,
	history domain.PurchaseHistoryRepository,
	config CascadeConfig,
	logger zerolog.Logger,
) *ResolutionCascade {
	c := &ResolutionCascade{
		ledger:                 ledger,
		variants:               variants,
		history:                history,
		personalConfidence:     config.PersonalConfidence,
		crowdsourcedConfidence: config.CrowdsourcedConfidence,
		sizeMatch:              config.SizeMatch.withDefaults(),
		now:                    config.Now,
		logger:                 logger.With().Str("component", "cascade").Logger(),
	}
	if c.personalConfidence <= 0 {
		c.personalConfidence = defaultPersonalConfidence
	}
	if c.crowdsourcedConfidence <= 0 {
		c.crowdsourcedConfidence = defaultCrowdsourcedConfidence
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Resolve walks the tiers in priority order. The first tier that yields a
// size fixes the size; price tiers keep going until one yields a price. A
// resolution with neither is a valid answer (Source "" ), not an error.
func (c *ResolutionCascade) Resolve(ctx context.Context, req ResolveRequest) (*domain.Resolution, error) {
	name := Normalize(req.ItemName)
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}

	res := &domain.Resolution{}

	tiers := []domain.Tier{domain.TierStoreVariant, domain.TierPersonal, domain.TierCrowdsourced}
	for _, tier := range tiers {
		var err error
		switch tier {
		case domain.TierStoreVariant:
			err = c.resolveStoreVariant(ctx, name, req.StoreID, res)
		case domain.TierPersonal:
			err = c.resolvePersonal(ctx, name, req.UserID, res)
		case domain.TierCrowdsourced:
			err = c.resolveCrowdsourced(ctx, name, res)
		case domain.TierNone:
		}
		if err != nil {
			return nil, fmt.Errorf("%s tier: %w", tier, err)
		}
		if res.PriceTier != domain.TierNone {
			break
		}
	}

	switch {
	case res.PriceTier != domain.TierNone:
		res.Source = res.PriceTier.Source()
	case res.SizeTier != domain.TierNone:
		res.Source = res.SizeTier.Source()
	default:
		res.Source = domain.SourceNone
	}

	metrics.CascadeResolutions.WithLabelValues(res.PriceTier.String()).Inc()
	c.logger.Debug().
		Str("item", name).
		Str("store", req.StoreID).
		Str("size_tier", res.SizeTier.String()).
		Str("price_tier", res.PriceTier.String()).
		Msg("item resolved")

	return res, nil
}

// resolveStoreVariant prefers the most common variant with a price at the store.
// If no variant is priced the most common one still supplies the size.
func (c *ResolutionCascade) resolveStoreVariant(ctx context.Context, name, storeID string, res *domain.Resolution) error {
	if storeID == "" || c.variants == nil {
		return nil
	}

	variants, err := c.variants.ListVariants(ctx, name, storeID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if len(variants) == 0 {
		return nil
	}
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Commonality > variants[j].Commonality
	})

	records, err := c.ledger.Lookup(ctx, name, storeID)
	if err != nil {
		return err
	}

	for _, v := range variants {
		record, kind := matchBySize(records, v.Size, c.sizeMatch)
		if kind != sizeMatchExact {
			continue
		}
		c.setSize(res, domain.TierStoreVariant, v.Size, v.Unit)
		confidence := EffectiveConfidence(c.ledger.Policy(), *record, c.now())
		c.setPrice(res, domain.TierStoreVariant, record.UnitPrice, confidence)
		return nil
	}

	top := variants[0]
	c.setSize(res, domain.TierStoreVariant, top.Size, top.Unit)
	return nil
}

// resolvePersonal uses the most recent price the user paid for the item at any store
func (c *ResolutionCascade) resolvePersonal(ctx context.Context, name, userID string, res *domain.Resolution) error {
	if userID == "" || c.history == nil {
		return nil
	}

	purchase, err := c.history.LatestPurchase(ctx, userID, name)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && purchase == nil) {
		return nil
	}
	if err != nil {
		return err
	}

	c.setSize(res, domain.TierPersonal, purchase.Size, unitOf(purchase.Size))
	c.setPrice(res, domain.TierPersonal, purchase.Price, c.personalConfidence)
	return nil
}

// resolveCrowdsourced uses the cheapest record for the name across all stores
func (c *ResolutionCascade) resolveCrowdsourced(ctx context.Context, name string, res *domain.Resolution) error {
	records, err := c.ledger.Lookup(ctx, name, "")
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	cheapest := records[0]
	c.setSize(res, domain.TierCrowdsourced, cheapest.Size, unitOf(cheapest.Size))
	c.setPrice(res, domain.TierCrowdsourced, cheapest.UnitPrice, c.crowdsourcedConfidence)
	return nil
}

// setSize fills the size only if no earlier tier produced one
func (c *ResolutionCascade) setSize(res *domain.Resolution, tier domain.Tier, size, unit string) {
	if res.SizeTier != domain.TierNone || size == "" {
		return
	}
	res.Size = size
	res.Unit = unit
	res.SizeTier = tier
}

func (c *ResolutionCascade) setPrice(res *domain.Resolution, tier domain.Tier, price, confidence float64) {
	res.Price = domain.Float64(price)
	res.Confidence = domain.Float64(confidence)
	res.PriceTier = tier
}
