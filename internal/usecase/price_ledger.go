package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/metrics"
)

const defaultLedgerRetries = 5

// LedgerConfig holds configuration for the price ledger
type LedgerConfig struct {
	MaxRetries int
	Policy     ConfidencePolicy
}

// PriceLedger maintains the rolling per item, store and size price records
type PriceLedger struct {
	store      domain.LedgerStore
	history    domain.PurchaseHistoryRepository
	policy     ConfidencePolicy
	maxRetries int
	logger     zerolog.Logger
}

// NewPriceLedger creates a ledger over the given store. history may be nil when
// purchase history is not tracked.
func NewPriceLedger(
	store domain.LedgerStore,
	history domain.PurchaseHistoryRepository,
	config LedgerConfig,
	logger zerolog.Logger,
) *PriceLedger {
	retries := config.MaxRetries
	if retries <= 0 {
		retries = defaultLedgerRetries
	}

	policy := config.Policy
	if policy == nil {
		policy = NewDecayPolicy(defaultDecayDays)
	}

	return &PriceLedger{
		store:      store,
		history:    history,
		policy:     policy,
		maxRetries: retries,
		logger:     logger.With().Str("component", "ledger").Logger(),
	}
}

// Policy returns the confidence policy the ledger scores with
func (l *PriceLedger) Policy() ConfidencePolicy {
	return l.policy
}

// Upsert folds one observation into the ledger. The read-modify-write is
// retried on ErrConflict up to the configured limit; when every attempt loses
// the race the returned error wraps ErrConflict and the call may be retried.
//
// Observations older than the record's LastSeenDate leave it untouched
// (outcome stale). Re-applying the observation that last updated a record
// (same date, price and reporter) is a no-op (outcome duplicate).
func (l *PriceLedger) Upsert(ctx context.Context, obs domain.Observation) (*domain.UpsertResult, error) {
	obs, key, err := l.prepare(obs)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := l.apply(ctx, key, obs)
		if errors.Is(err, domain.ErrConflict) {
			metrics.LedgerConflicts.Inc()
			l.logger.Warn().Str("key", key.String()).Int("attempt", attempt).Msg("ledger write conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		metrics.LedgerObservations.WithLabelValues(string(result.Outcome)).Inc()
		l.logger.Debug().
			Str("key", key.String()).
			Str("outcome", string(result.Outcome)).
			Int("reports", result.Record.ReportCount).
			Float64("average", result.Record.AveragePrice).
			Msg("observation applied")

		if result.Outcome == domain.OutcomeInserted || result.Outcome == domain.OutcomeMerged {
			l.recordPurchase(ctx, obs, key)
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", domain.ErrConflict, key, l.maxRetries)
}

// prepare validates an observation and derives its ledger key
func (l *PriceLedger) prepare(obs domain.Observation) (domain.Observation, domain.RecordKey, error) {
	if obs.StoreID == "" || obs.ObservedAt.IsZero() || obs.Price <= 0 || math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
		return obs, domain.RecordKey{}, domain.ErrInvalidRequest
	}

	name := obs.ItemName
	if obs.Size == "" {
		name, obs.Size = ExtractSize(obs.ItemName)
	}

	normalized := Normalize(name)
	if normalized == "" {
		return obs, domain.RecordKey{}, domain.ErrInvalidRequest
	}

	if obs.RecordedAt.IsZero() || obs.RecordedAt.Before(obs.ObservedAt) {
		obs.RecordedAt = obs.ObservedAt
	}

	key := domain.RecordKey{
		NormalizedName: normalized,
		StoreID:        obs.StoreID,
		SizeKey:        SizeKey(obs.Size),
	}
	return obs, key, nil
}

// apply runs one read-modify-write attempt
func (l *PriceLedger) apply(ctx context.Context, key domain.RecordKey, obs domain.Observation) (*domain.UpsertResult, error) {
	existing, err := l.store.GetRecord(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		record := newPriceRecord(key, obs, l.policy)
		saved, err := l.store.SaveRecord(ctx, record, 0)
		if err != nil {
			return nil, err
		}
		return &domain.UpsertResult{Record: *saved, Outcome: domain.OutcomeInserted}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger record %s: %w", key, err)
	}

	if isDuplicateObservation(*existing, obs) {
		return &domain.UpsertResult{Record: *existing, Outcome: domain.OutcomeDuplicate}, nil
	}
	if obs.ObservedAt.Before(existing.LastSeenDate) {
		return &domain.UpsertResult{Record: *existing, Outcome: domain.OutcomeStale}, nil
	}

	merged := mergePriceRecord(*existing, obs, l.policy)
	saved, err := l.store.SaveRecord(ctx, merged, existing.Version)
	if err != nil {
		return nil, err
	}
	return &domain.UpsertResult{Record: *saved, Outcome: domain.OutcomeMerged}, nil
}

func (l *PriceLedger) recordPurchase(ctx context.Context, obs domain.Observation, key domain.RecordKey) {
	if l.history == nil || obs.ReporterID == "" {
		return
	}
	err := l.history.AppendPurchase(ctx, domain.Purchase{
		UserID:         obs.ReporterID,
		NormalizedName: key.NormalizedName,
		StoreID:        key.StoreID,
		Size:           obs.Size,
		Price:          obs.Price,
		PurchasedAt:    obs.ObservedAt,
	})
	if err != nil {
		// The ledger row is already committed; history is best effort
		l.logger.Warn().Err(err).Str("key", key.String()).Msg("failed to append purchase history")
	}
}

// newPriceRecord builds the first record for a key
func newPriceRecord(key domain.RecordKey, obs domain.Observation, policy ConfidencePolicy) domain.PriceRecord {
	return domain.PriceRecord{
		NormalizedName: key.NormalizedName,
		StoreID:        key.StoreID,
		Size:           obs.Size,
		SizeKey:        key.SizeKey,
		UnitPrice:      obs.Price,
		AveragePrice:   obs.Price,
		MinPrice:       obs.Price,
		MaxPrice:       obs.Price,
		ReportCount:    1,
		Confidence:     policy.InitialConfidence(obs.ObservedAt, obs.RecordedAt),
		LastSeenDate:   obs.ObservedAt,
		LastReportedBy: obs.ReporterID,
	}
}

// mergePriceRecord folds an observation that is not older than the record
// into it. The result depends only on its arguments.
func mergePriceRecord(prev domain.PriceRecord, obs domain.Observation, policy ConfidencePolicy) domain.PriceRecord {
	asOf := obs.RecordedAt
	newWeight := policy.NewWeight(obs.ObservedAt, asOf)
	existingWeight := policy.ExistingWeight(prev.LastSeenDate, asOf)

	next := prev
	next.AveragePrice = (obs.Price*newWeight + prev.AveragePrice*existingWeight) / (newWeight + existingWeight)
	next.UnitPrice = obs.Price
	next.MinPrice = math.Min(prev.MinPrice, obs.Price)
	next.MaxPrice = math.Max(prev.MaxPrice, obs.Price)
	next.ReportCount = prev.ReportCount + 1
	next.LastSeenDate = obs.ObservedAt
	next.LastReportedBy = obs.ReporterID
	next.Confidence = policy.Confidence(next.ReportCount, obs.ObservedAt, asOf)
	if obs.Size != "" {
		next.Size = obs.Size
	}
	return next
}

func isDuplicateObservation(record domain.PriceRecord, obs domain.Observation) bool {
	return obs.ObservedAt.Equal(record.LastSeenDate) &&
		obs.Price == record.UnitPrice &&
		obs.ReporterID == record.LastReportedBy
}

// Lookup returns every record for an item, optionally limited to one store,
// cheapest first
func (l *PriceLedger) Lookup(ctx context.Context, itemName, storeID string) ([]domain.PriceRecord, error) {
	normalized := Normalize(itemName)
	if normalized == "" {
		return nil, nil
	}

	records, err := l.store.ListRecords(ctx, normalized, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger records for %q: %w", normalized, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].UnitPrice != records[j].UnitPrice {
			return records[i].UnitPrice < records[j].UnitPrice
		}
		if records[i].StoreID != records[j].StoreID {
			return records[i].StoreID < records[j].StoreID
		}
		return records[i].SizeKey < records[j].SizeKey
	})
	return records, nil
}

// KnownItems returns every normalized item name the ledger has seen
func (l *PriceLedger) KnownItems(ctx context.Context) ([]string, error) {
	names, err := l.store.ListItemNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger items: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
