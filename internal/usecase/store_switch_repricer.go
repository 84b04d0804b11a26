package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/metrics"
)

// StoreSwitchRepricer re-prices a list's items when its store changes.
//
// Items are computed one by one; a ledger read failure leaves that item
// untouched and is reported in SwitchResult.Failures. All changed items are
// then written in a single SaveItems batch, so the list is never left with a
// partial write. Totals are recomputed from the list after the batch.
type StoreSwitchRepricer struct {
	ledger    *PriceLedger
	lists     domain.ListRepository
	sizeMatch SizeMatchConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// NewStoreSwitchRepricer creates a repricer
func NewStoreSwitchRepricer(
	ledger *PriceLedger,
	lists domain.ListRepository,
	sizeMatch SizeMatchConfig,
	logger zerolog.Logger,
) *StoreSwitchRepricer {
	return &StoreSwitchRepricer{
		ledger:    ledger,
		lists:     lists,
		sizeMatch: sizeMatch.withDefaults(),
		now:       time.Now,
		logger:    logger.With().Str("component", "repricer").Logger(),
	}
}

// SwitchStore re-prices every item of the list for newStoreID and persists the result
func (r *StoreSwitchRepricer) SwitchStore(ctx context.Context, listID, newStoreID string) (*domain.SwitchResult, error) {
	if listID == "" || newStoreID == "" {
		return nil, domain.ErrInvalidRequest
	}

	items, err := r.lists.ListItems(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}

	result, updated := r.Reprice(ctx, items, newStoreID)
	result.ListID = listID

	if len(updated) > 0 {
		if err := r.lists.SaveItems(ctx, listID, updated); err != nil {
			return nil, fmt.Errorf("failed to save repriced items for list %s: %w", listID, err)
		}
	}

	// Read back so the total reflects what was actually stored
	stored, err := r.lists.ListItems(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload list %s: %w", listID, err)
	}
	newTotal := listTotal(stored)
	result.NewTotal = newTotal.InexactFloat64()
	result.Savings = listTotal(items).Sub(newTotal).InexactFloat64()

	r.logger.Info().
		Str("list", listID).
		Str("store", newStoreID).
		Int("updated", result.ItemsUpdated).
		Int("preserved", result.ManualOverridesPreserved).
		Int("failed", len(result.Failures)).
		Float64("savings", result.Savings).
		Msg("store switched")

	return result, nil
}

// Reprice computes the store switch without persisting anything. It returns
// the result and the items that changed.
func (r *StoreSwitchRepricer) Reprice(ctx context.Context, items []domain.ListItem, newStoreID string) (*domain.SwitchResult, []domain.ListItem) {
	result := &domain.SwitchResult{
		StoreID:      newStoreID,
		PriceChanges: []domain.PriceChange{},
		SizeChanges:  []domain.SizeChange{},
	}
	previous := listTotal(items)
	next := make([]domain.ListItem, len(items))
	copy(next, items)

	var updated []domain.ListItem
	for i, item := range items {
		if item.PriceOverride {
			result.ManualOverridesPreserved++
			metrics.RepricedItems.WithLabelValues("preserved").Inc()
			continue
		}

		outcome, err := r.repriceItem(ctx, item, newStoreID)
		if err != nil {
			r.logger.Warn().Err(err).Str("item", item.ID).Str("store", newStoreID).Msg("item left unpriced")
			result.Failures = append(result.Failures, domain.ItemFailure{ItemID: item.ID, Name: item.Name, Error: err.Error()})
			metrics.RepricedItems.WithLabelValues("failed").Inc()
			continue
		}
		if !outcome.changed {
			metrics.RepricedItems.WithLabelValues("unchanged").Inc()
			continue
		}

		next[i] = outcome.item
		updated = append(updated, outcome.item)
		result.ItemsUpdated++
		if outcome.priceChange != nil {
			result.PriceChanges = append(result.PriceChanges, *outcome.priceChange)
		}
		if outcome.sizeChange != nil {
			result.SizeChanges = append(result.SizeChanges, *outcome.sizeChange)
		}
		metrics.RepricedItems.WithLabelValues("updated").Inc()
	}

	newTotal := listTotal(next)
	result.PreviousTotal = previous.InexactFloat64()
	result.NewTotal = newTotal.InexactFloat64()
	result.Savings = previous.Sub(newTotal).InexactFloat64()
	return result, updated
}

type itemOutcome struct {
	item        domain.ListItem
	changed     bool
	priceChange *domain.PriceChange
	sizeChange  *domain.SizeChange
}

func (r *StoreSwitchRepricer) repriceItem(ctx context.Context, item domain.ListItem, storeID string) (itemOutcome, error) {
	records, err := r.ledger.Lookup(ctx, item.Name, storeID)
	if err != nil {
		return itemOutcome{}, err
	}
	if len(records) == 0 {
		return itemOutcome{item: item}, nil
	}

	if item.SizeOverride {
		return r.repriceFixedSize(item, records, storeID), nil
	}

	// Switching away from the store the item was priced at while an original
	// size is remembered: try to restore that size
	target := item.Size
	restoring := false
	if item.OriginalSize != "" && storeID != item.PricedStoreID {
		target = item.OriginalSize
		restoring = true
	}

	record, kind := matchBySize(records, target, r.sizeMatch)
	if kind == sizeMatchNone {
		record = &records[0]
	}

	next := item
	out := itemOutcome{}
	newSize := record.Size
	switch {
	case target == "":
		// an item without a size stays sizeless; only its price follows the store
		newSize = ""
	case kind == sizeMatchExact:
		newSize = target
	}

	if newSize != "" && !sameSize(newSize, item.Size, r.sizeMatch) {
		if next.OriginalSize == "" {
			next.OriginalSize = item.Size
		}
		next.Size = newSize
		next.Unit = unitOf(newSize)
		out.sizeChange = &domain.SizeChange{ItemID: item.ID, Name: item.Name, OldSize: item.Size, NewSize: newSize}
	}

	if restoring && kind == sizeMatchExact {
		next.OriginalSize = ""
		if out.sizeChange != nil {
			out.sizeChange.Restored = true
		}
	}

	r.applyRecordPrice(&next, record, storeID)
	if item.EstimatedPrice == nil || *item.EstimatedPrice != record.UnitPrice {
		out.priceChange = &domain.PriceChange{ItemID: item.ID, Name: item.Name, OldPrice: item.EstimatedPrice, NewPrice: record.UnitPrice}
	}

	out.item = next
	out.changed = out.priceChange != nil || out.sizeChange != nil || !itemsEqual(item, next)
	return out, nil
}

// repriceFixedSize handles size overrides: only an exact size match may change the price
func (r *StoreSwitchRepricer) repriceFixedSize(item domain.ListItem, records []domain.PriceRecord, storeID string) itemOutcome {
	record, kind := matchBySize(records, item.Size, r.sizeMatch)
	if kind != sizeMatchExact {
		return itemOutcome{item: item}
	}

	next := item
	r.applyRecordPrice(&next, record, storeID)

	out := itemOutcome{item: next}
	if item.EstimatedPrice == nil || *item.EstimatedPrice != record.UnitPrice {
		out.priceChange = &domain.PriceChange{ItemID: item.ID, Name: item.Name, OldPrice: item.EstimatedPrice, NewPrice: record.UnitPrice}
	}
	out.changed = out.priceChange != nil || !itemsEqual(item, next)
	return out
}

func (r *StoreSwitchRepricer) applyRecordPrice(item *domain.ListItem, record *domain.PriceRecord, storeID string) {
	item.EstimatedPrice = domain.Float64(record.UnitPrice)
	item.PriceSource = domain.SourceCrowdsourced
	item.PriceConfidence = domain.Float64(EffectiveConfidence(r.ledger.Policy(), *record, r.now()))
	item.PricedStoreID = storeID
}

// itemsEqual compares the fields a store switch may touch, ignoring confidence
func itemsEqual(a, b domain.ListItem) bool {
	return a.Size == b.Size &&
		a.Unit == b.Unit &&
		a.OriginalSize == b.OriginalSize &&
		a.PricedStoreID == b.PricedStoreID &&
		a.PriceSource == b.PriceSource &&
		floatPtrEqual(a.EstimatedPrice, b.EstimatedPrice)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
