package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/memory"
)

var (
	testDay = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	errBoom = errors.New("boom")
)

func day(n int) time.Time {
	return testDay.AddDate(0, 0, n)
}

// newTestLedger returns a ledger backed by an in-memory store that also keeps purchase history
func newTestLedger() (*PriceLedger, *memory.Store) {
	store := memory.NewStore()
	return NewPriceLedger(store, store, LedgerConfig{}, zerolog.Nop()), store
}

// seed upserts observations and panics on failure
func seed(ledger *PriceLedger, observations ...domain.Observation) {
	for _, obs := range observations {
		if _, err := ledger.Upsert(context.Background(), obs); err != nil {
			panic(err)
		}
	}
}

func observation(item, store, size string, price float64, at time.Time) domain.Observation {
	return domain.Observation{ItemName: item, StoreID: store, Size: size, Price: price, ObservedAt: at}
}

// MockLedgerStore wraps the memory store and injects failures
type MockLedgerStore struct {
	*memory.Store

	mu            sync.Mutex
	conflictsLeft int
	saveCalls     int
	listErrorFor  map[string]error
}

func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{Store: memory.NewStore(), listErrorFor: map[string]error{}}
}

func (m *MockLedgerStore) SaveRecord(ctx context.Context, record domain.PriceRecord, expectedVersion int64) (*domain.PriceRecord, error) {
	m.mu.Lock()
	m.saveCalls++
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		m.mu.Unlock()
		return nil, domain.ErrConflict
	}
	m.mu.Unlock()
	return m.Store.SaveRecord(ctx, record, expectedVersion)
}

func (m *MockLedgerStore) ListRecords(ctx context.Context, normalizedName, storeID string) ([]domain.PriceRecord, error) {
	if err := m.listErrorFor[normalizedName]; err != nil {
		return nil, err
	}
	return m.Store.ListRecords(ctx, normalizedName, storeID)
}

// MockVariantRepository returns fixed variants or an error
type MockVariantRepository struct {
	variants []domain.Variant
	err      error
}

func (m *MockVariantRepository) ListVariants(ctx context.Context, baseItem, storeID string) ([]domain.Variant, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Variant
	for _, v := range m.variants {
		if v.BaseItem == baseItem && (v.StoreID == "" || v.StoreID == storeID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MockVariantRepository) SaveVariant(ctx context.Context, variant domain.Variant) error {
	m.variants = append(m.variants, variant)
	return nil
}

// MockListRepository wraps the memory store and can fail batch writes
type MockListRepository struct {
	*memory.Store
	saveError  error
	savedBatch [][]domain.ListItem
}

func NewMockListRepository(listID string, items ...domain.ListItem) *MockListRepository {
	repo := &MockListRepository{Store: memory.NewStore()}
	if err := repo.Store.ReplaceItems(context.Background(), listID, items); err != nil {
		panic(err)
	}
	return repo
}

func (m *MockListRepository) SaveItems(ctx context.Context, listID string, items []domain.ListItem) error {
	if m.saveError != nil {
		return m.saveError
	}
	m.savedBatch = append(m.savedBatch, items)
	return m.Store.SaveItems(ctx, listID, items)
}

// MockEstimateClient answers from a map keyed by item name
type MockEstimateClient struct {
	estimates map[string]domain.PriceEstimate
	calls     int
}

func (m *MockEstimateClient) Estimate(ctx context.Context, itemName, storeID string) (*domain.PriceEstimate, error) {
	m.calls++
	estimate, ok := m.estimates[itemName]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &estimate, nil
}

// MockEstimateCache is a map-backed estimate cache
type MockEstimateCache struct {
	data      map[string]domain.PriceEstimate
	setCalled bool
}

func NewMockEstimateCache() *MockEstimateCache {
	return &MockEstimateCache{data: make(map[string]domain.PriceEstimate)}
}

func (m *MockEstimateCache) Get(ctx context.Context, key string) (*domain.PriceEstimate, error) {
	if v, ok := m.data[key]; ok {
		return &v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockEstimateCache) Set(ctx context.Context, key string, value domain.PriceEstimate, ttl time.Duration) error {
	m.setCalled = true
	m.data[key] = value
	return nil
}
