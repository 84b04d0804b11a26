// Package redis stores ledger records and purchase history in Redis.
// Records are JSON values guarded by WATCH so concurrent writers to the same
// key resolve through domain.ErrConflict.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pricelens/backend/internal/domain"
)

const (
	recordKeyPrefix  = "ledger:rec:"
	itemIndexPrefix  = "ledger:item:"
	itemNamesKey     = "ledger:items"
	historyKeyPrefix = "history:"
)

// LedgerStore implements domain.LedgerStore and domain.PurchaseHistoryRepository
type LedgerStore struct {
	client *goredis.Client
}

// NewLedgerStore wraps an existing client
func NewLedgerStore(client *goredis.Client) *LedgerStore {
	return &LedgerStore{client: client}
}

// Connect parses a redis:// URL and verifies the server answers
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", domain.ErrStorageUnavailable, err)
	}
	return client, nil
}

func recordKey(key domain.RecordKey) string {
	return recordKeyPrefix + key.String()
}

func historyKey(userID, normalizedName string) string {
	return historyKeyPrefix + userID + ":" + normalizedName
}

func decodeRecord(data []byte) (*domain.PriceRecord, error) {
	var record domain.PriceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode price record: %w", err)
	}
	return &record, nil
}

// GetRecord loads a record by key
func (s *LedgerStore) GetRecord(ctx context.Context, key domain.RecordKey) (*domain.PriceRecord, error) {
	data, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return decodeRecord(data)
}

// SaveRecord writes record when the stored version matches expectedVersion
func (s *LedgerStore) SaveRecord(ctx context.Context, record domain.PriceRecord, expectedVersion int64) (*domain.PriceRecord, error) {
	key := record.Key()
	rk := recordKey(key)
	record.Version = expectedVersion + 1

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode price record: %w", err)
	}

	txf := func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, rk).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
			if expectedVersion != 0 {
				return domain.ErrConflict
			}
		case err != nil:
			return err
		default:
			stored, err := decodeRecord(current)
			if err != nil {
				return err
			}
			if stored.Version != expectedVersion {
				return domain.ErrConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, rk, payload, 0)
			pipe.SAdd(ctx, itemIndexPrefix+key.NormalizedName, key.String())
			pipe.SAdd(ctx, itemNamesKey, key.NormalizedName)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, rk)
	switch {
	case err == nil:
		return &record, nil
	case errors.Is(err, domain.ErrConflict), errors.Is(err, goredis.TxFailedErr):
		return nil, domain.ErrConflict
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
}

// ListRecords returns the records of an item, limited to storeID when set
func (s *LedgerStore) ListRecords(ctx context.Context, normalizedName, storeID string) ([]domain.PriceRecord, error) {
	members, err := s.client.SMembers(ctx, itemIndexPrefix+normalizedName).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		parts := strings.SplitN(member, "|", 3)
		if storeID != "" && (len(parts) < 2 || parts[1] != storeID) {
			continue
		}
		keys = append(keys, recordKeyPrefix+member)
	}
	sort.Strings(keys)

	records := make([]domain.PriceRecord, 0, len(keys))
	if len(keys) == 0 {
		return records, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // index entry without a record
		}
		record, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// ListItemNames returns every item name with at least one record
func (s *LedgerStore) ListItemNames(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, itemNamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

// AppendPurchase adds a purchase to the user's history, scored by purchase time
func (s *LedgerStore) AppendPurchase(ctx context.Context, purchase domain.Purchase) error {
	payload, err := json.Marshal(purchase)
	if err != nil {
		return fmt.Errorf("failed to encode purchase: %w", err)
	}

	z := goredis.Z{Score: float64(purchase.PurchasedAt.UnixMilli()), Member: payload}
	if err := s.client.ZAdd(ctx, historyKey(purchase.UserID, purchase.NormalizedName), z).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// LatestPurchase returns the purchase with the highest timestamp
func (s *LedgerStore) LatestPurchase(ctx context.Context, userID, normalizedName string) (*domain.Purchase, error) {
	members, err := s.client.ZRevRange(ctx, historyKey(userID, normalizedName), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if len(members) == 0 {
		return nil, domain.ErrNotFound
	}

	var purchase domain.Purchase
	if err := json.Unmarshal([]byte(members[0]), &purchase); err != nil {
		return nil, fmt.Errorf("failed to decode purchase: %w", err)
	}
	return &purchase, nil
}
