// Package memory provides in-process implementations of the repository
// interfaces. The ledger part is safe for concurrent writers: SaveRecord is
// a compare-and-swap on the record version under a single mutex.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pricelens/backend/internal/domain"
)

// Store keeps ledger records, purchase history, variants and list items in memory
type Store struct {
	mu sync.RWMutex

	records   map[domain.RecordKey]domain.PriceRecord
	byItem    map[string]map[domain.RecordKey]struct{}
	purchases map[string][]domain.Purchase // keyed by userID|normalizedName
	variants  map[string][]domain.Variant  // keyed by base item
	lists     map[string][]domain.ListItem
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		records:   make(map[domain.RecordKey]domain.PriceRecord),
		byItem:    make(map[string]map[domain.RecordKey]struct{}),
		purchases: make(map[string][]domain.Purchase),
		variants:  make(map[string][]domain.Variant),
		lists:     make(map[string][]domain.ListItem),
	}
}

// GetRecord returns a copy of the record stored under key
func (s *Store) GetRecord(ctx context.Context, key domain.RecordKey) (*domain.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// SaveRecord writes record if the stored version equals expectedVersion
// (0 meaning absent) and bumps the version
func (s *Store) SaveRecord(ctx context.Context, record domain.PriceRecord, expectedVersion int64) (*domain.PriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.Key()
	current, exists := s.records[key]
	switch {
	case expectedVersion == 0 && exists:
		return nil, domain.ErrConflict
	case expectedVersion != 0 && (!exists || current.Version != expectedVersion):
		return nil, domain.ErrConflict
	}

	record.Version = expectedVersion + 1
	s.records[key] = record

	keys, ok := s.byItem[key.NormalizedName]
	if !ok {
		keys = make(map[domain.RecordKey]struct{})
		s.byItem[key.NormalizedName] = keys
	}
	keys[key] = struct{}{}

	return &record, nil
}

// ListRecords returns the records of an item, limited to storeID when set
func (s *Store) ListRecords(ctx context.Context, normalizedName, storeID string) ([]domain.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.byItem[normalizedName]
	records := make([]domain.PriceRecord, 0, len(keys))
	for key := range keys {
		if storeID != "" && key.StoreID != storeID {
			continue
		}
		records = append(records, s.records[key])
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key().String() < records[j].Key().String()
	})
	return records, nil
}

// ListItemNames returns every normalized item name with at least one record
func (s *Store) ListItemNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.byItem))
	for name := range s.byItem {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func purchaseKey(userID, normalizedName string) string {
	return userID + "|" + normalizedName
}

// AppendPurchase records a purchase
func (s *Store) AppendPurchase(ctx context.Context, purchase domain.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := purchaseKey(purchase.UserID, purchase.NormalizedName)
	s.purchases[key] = append(s.purchases[key], purchase)
	return nil
}

// LatestPurchase returns the most recent purchase of an item by a user
func (s *Store) LatestPurchase(ctx context.Context, userID, normalizedName string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.purchases[purchaseKey(userID, normalizedName)]
	if len(history) == 0 {
		return nil, domain.ErrNotFound
	}

	latest := history[0]
	for _, p := range history[1:] {
		if !p.PurchasedAt.Before(latest.PurchasedAt) {
			latest = p
		}
	}
	return &latest, nil
}

// SaveVariant adds or replaces a variant identified by base item, store and name
func (s *Store) SaveVariant(ctx context.Context, variant domain.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	variants := s.variants[variant.BaseItem]
	for i, v := range variants {
		if v.StoreID == variant.StoreID && v.VariantName == variant.VariantName {
			variants[i] = variant
			return nil
		}
	}
	s.variants[variant.BaseItem] = append(variants, variant)
	return nil
}

// ListVariants returns the variants of a base item for a store, including store-independent ones
func (s *Store) ListVariants(ctx context.Context, baseItem, storeID string) ([]domain.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Variant
	for _, v := range s.variants[baseItem] {
		if v.StoreID == "" || v.StoreID == storeID {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListItems returns copies of a list's items
func (s *Store) ListItems(ctx context.Context, listID string) ([]domain.ListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.lists[listID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.ListItem, len(items))
	copy(out, items)
	return out, nil
}

// SaveItems updates items by ID, appending unknown ones. Either every item is
// written or, when any item lacks an ID, none is.
func (s *Store) SaveItems(ctx context.Context, listID string, items []domain.ListItem) error {
	for _, item := range items {
		if item.ID == "" {
			return domain.ErrInvalidRequest
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := append([]domain.ListItem(nil), s.lists[listID]...)
	index := make(map[string]int, len(current))
	for i, item := range current {
		index[item.ID] = i
	}
	for _, item := range items {
		item.ListID = listID
		if i, ok := index[item.ID]; ok {
			current[i] = item
			continue
		}
		index[item.ID] = len(current)
		current = append(current, item)
	}
	s.lists[listID] = current
	return nil
}

// ReplaceItems sets the full contents of a list
func (s *Store) ReplaceItems(ctx context.Context, listID string, items []domain.ListItem) error {
	for _, item := range items {
		if item.ID == "" {
			return domain.ErrInvalidRequest
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ListItem, len(items))
	for i, item := range items {
		item.ListID = listID
		out[i] = item
	}
	s.lists[listID] = out
	return nil
}
