package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// StoreComparator prices a whole list at alternative stores
type StoreComparator struct {
	ledger    *PriceLedger
	sizeMatch SizeMatchConfig
	logger    zerolog.Logger
}

// NewStoreComparator creates a comparator
func NewStoreComparator(ledger *PriceLedger, sizeMatch SizeMatchConfig, logger zerolog.Logger) *StoreComparator {
	return &StoreComparator{
		ledger:    ledger,
		sizeMatch: sizeMatch.withDefaults(),
		logger:    logger.With().Str("component", "comparator").Logger(),
	}
}

// Compare totals the list at each candidate store and sorts the alternatives
// by savings against the current total, largest first. The current store and
// repeated candidates are skipped.
func (c *StoreComparator) Compare(
	ctx context.Context,
	items []domain.ListItem,
	currentStoreID string,
	candidateStoreIDs []string,
) (*domain.ComparisonResult, error) {
	current := listTotal(items)

	seen := map[string]bool{currentStoreID: true}
	alternatives := make([]domain.StoreAlternative, 0, len(candidateStoreIDs))

	for _, storeID := range candidateStoreIDs {
		if storeID == "" || seen[storeID] {
			continue
		}
		seen[storeID] = true

		alt, err := c.priceAtStore(ctx, items, storeID)
		if err != nil {
			return nil, err
		}
		savings := current.Sub(alt.total)
		alternatives = append(alternatives, domain.StoreAlternative{
			StoreID:         storeID,
			Total:           alt.total.InexactFloat64(),
			ItemsCompared:   alt.compared,
			ItemsWithIssues: alt.issues,
			Savings:         savings.InexactFloat64(),
		})
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Savings > alternatives[j].Savings
	})

	return &domain.ComparisonResult{
		CurrentTotal: current.InexactFloat64(),
		Alternatives: alternatives,
	}, nil
}

type storeTally struct {
	total    decimal.Decimal
	compared int
	issues   int
}

func (c *StoreComparator) priceAtStore(ctx context.Context, items []domain.ListItem, storeID string) (storeTally, error) {
	tally := storeTally{total: decimal.Zero}

	for _, item := range items {
		if item.PriceOverride {
			tally.total = tally.total.Add(lineTotal(item.Price(), item.Qty()))
			continue
		}
		tally.compared++

		records, err := c.ledger.Lookup(ctx, item.Name, storeID)
		if err != nil {
			return tally, fmt.Errorf("compare at store %s: %w", storeID, err)
		}

		price, issue := c.itemPrice(item, records)
		if issue {
			tally.issues++
		}
		tally.total = tally.total.Add(lineTotal(price, item.Qty()))
	}

	tally.total = tally.total.Round(2)
	c.logger.Debug().
		Str("store", storeID).
		Str("total", tally.total.StringFixed(2)).
		Int("compared", tally.compared).
		Int("issues", tally.issues).
		Msg("store priced")
	return tally, nil
}

// itemPrice picks the price for one item from the store's records and reports
// whether the pick is an issue (no data, tolerance match, or no size match)
func (c *StoreComparator) itemPrice(item domain.ListItem, records []domain.PriceRecord) (float64, bool) {
	if len(records) == 0 {
		return item.Price(), true
	}

	record, kind := matchBySize(records, item.Size, c.sizeMatch)
	switch kind {
	case sizeMatchExact:
		return record.UnitPrice, false
	case sizeMatchTolerance:
		return record.UnitPrice, true
	case sizeMatchNone:
	}
	return records[0].UnitPrice, true
}

// listTotal sums estimated price times quantity, rounded to cents
func listTotal(items []domain.ListItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(lineTotal(item.Price(), item.Qty()))
	}
	return total.Round(2)
}

func lineTotal(price, qty float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(qty))
}
