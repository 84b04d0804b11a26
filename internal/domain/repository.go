package domain

import (
	"context"
	"time"
)

// LedgerStore persists price records. SaveRecord is a compare-and-swap on
// Version: expectedVersion 0 means "insert, the key must not exist yet".
// Implementations return ErrConflict when the expectation does not hold and
// ErrNotFound from GetRecord when the key is absent.
type LedgerStore interface {
	GetRecord(ctx context.Context, key RecordKey) (*PriceRecord, error)
	SaveRecord(ctx context.Context, record PriceRecord, expectedVersion int64) (*PriceRecord, error)
	ListRecords(ctx context.Context, normalizedName, storeID string) ([]PriceRecord, error)
	ListItemNames(ctx context.Context) ([]string, error)
}

// PurchaseHistoryRepository stores what users paid for items
type PurchaseHistoryRepository interface {
	AppendPurchase(ctx context.Context, purchase Purchase) error
	LatestPurchase(ctx context.Context, userID, normalizedName string) (*Purchase, error)
}

// VariantRepository returns known variants of a base item for a store,
// including variants known for every store
type VariantRepository interface {
	ListVariants(ctx context.Context, baseItem, storeID string) ([]Variant, error)
	SaveVariant(ctx context.Context, variant Variant) error
}

// ListRepository reads and writes shopping list items. SaveItems applies all
// items or none.
type ListRepository interface {
	ListItems(ctx context.Context, listID string) ([]ListItem, error)
	SaveItems(ctx context.Context, listID string, items []ListItem) error
	ReplaceItems(ctx context.Context, listID string, items []ListItem) error
}

// EstimateCache caches estimator answers
type EstimateCache interface {
	Get(ctx context.Context, key string) (*PriceEstimate, error)
	Set(ctx context.Context, key string, value PriceEstimate, ttl time.Duration) error
}

// PriceEstimateClient asks the external estimator for a price
type PriceEstimateClient interface {
	Estimate(ctx context.Context, itemName, storeID string) (*PriceEstimate, error)
}
