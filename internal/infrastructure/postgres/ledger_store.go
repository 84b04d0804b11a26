// Package postgres stores ledger records and purchase history in PostgreSQL
// through gorm. Concurrent writers are serialized by a version column.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pricelens/backend/internal/domain"
)

type priceRecordRow struct {
	ID             uint      `gorm:"primaryKey"`
	NormalizedName string    `gorm:"size:255;not null;uniqueIndex:idx_price_records_key,priority:1"`
	StoreID        string    `gorm:"size:128;not null;uniqueIndex:idx_price_records_key,priority:2"`
	SizeKey        string    `gorm:"size:64;not null;default:'';uniqueIndex:idx_price_records_key,priority:3"`
	Size           string    `gorm:"size:64"`
	UnitPrice      float64   `gorm:"not null"`
	AveragePrice   float64   `gorm:"not null"`
	MinPrice       float64   `gorm:"not null"`
	MaxPrice       float64   `gorm:"not null"`
	ReportCount    int       `gorm:"not null"`
	Confidence     float64   `gorm:"not null"`
	LastSeenDate   time.Time `gorm:"not null"`
	LastReportedBy string    `gorm:"size:128"`
	Version        int64     `gorm:"not null"`
	UpdatedAt      time.Time
}

func (priceRecordRow) TableName() string { return "price_records" }

type purchaseRow struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         string    `gorm:"size:128;not null;index:idx_purchases_user_item,priority:1"`
	NormalizedName string    `gorm:"size:255;not null;index:idx_purchases_user_item,priority:2"`
	StoreID        string    `gorm:"size:128;not null"`
	Size           string    `gorm:"size:64"`
	Price          float64   `gorm:"not null"`
	PurchasedAt    time.Time `gorm:"not null;index"`
}

func (purchaseRow) TableName() string { return "purchases" }

func toRow(r domain.PriceRecord) priceRecordRow {
	return priceRecordRow{
		NormalizedName: r.NormalizedName,
		StoreID:        r.StoreID,
		SizeKey:        r.SizeKey,
		Size:           r.Size,
		UnitPrice:      r.UnitPrice,
		AveragePrice:   r.AveragePrice,
		MinPrice:       r.MinPrice,
		MaxPrice:       r.MaxPrice,
		ReportCount:    r.ReportCount,
		Confidence:     r.Confidence,
		LastSeenDate:   r.LastSeenDate.UTC(),
		LastReportedBy: r.LastReportedBy,
		Version:        r.Version,
	}
}

func (row priceRecordRow) toDomain() domain.PriceRecord {
	return domain.PriceRecord{
		NormalizedName: row.NormalizedName,
		StoreID:        row.StoreID,
		SizeKey:        row.SizeKey,
		Size:           row.Size,
		UnitPrice:      row.UnitPrice,
		AveragePrice:   row.AveragePrice,
		MinPrice:       row.MinPrice,
		MaxPrice:       row.MaxPrice,
		ReportCount:    row.ReportCount,
		Confidence:     row.Confidence,
		LastSeenDate:   row.LastSeenDate.UTC(),
		LastReportedBy: row.LastReportedBy,
		Version:        row.Version,
	}
}

// Open connects to PostgreSQL. Errors are translated so unique violations
// surface as gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to postgres: %v", domain.ErrStorageUnavailable, err)
	}
	return db, nil
}

// LedgerStore implements domain.LedgerStore and domain.PurchaseHistoryRepository
type LedgerStore struct {
	db *gorm.DB
}

// NewLedgerStore creates a store on an open connection
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Migrate creates or updates the tables
func (s *LedgerStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&priceRecordRow{}, &purchaseRow{}); err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	return nil
}

func keyScope(key domain.RecordKey) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("normalized_name = ? AND store_id = ? AND size_key = ?", key.NormalizedName, key.StoreID, key.SizeKey)
	}
}

// GetRecord loads a record by key
func (s *LedgerStore) GetRecord(ctx context.Context, key domain.RecordKey) (*domain.PriceRecord, error) {
	var row priceRecordRow
	err := s.db.WithContext(ctx).Scopes(keyScope(key)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	record := row.toDomain()
	return &record, nil
}

// casUpdate builds the conditional update for a record at expectedVersion
func casUpdate(db *gorm.DB, row priceRecordRow, expectedVersion int64) *gorm.DB {
	key := domain.RecordKey{NormalizedName: row.NormalizedName, StoreID: row.StoreID, SizeKey: row.SizeKey}
	return db.Model(&priceRecordRow{}).
		Scopes(keyScope(key)).
		Where("version = ?", expectedVersion).
		Updates(map[string]interface{}{
			"size":             row.Size,
			"unit_price":       row.UnitPrice,
			"average_price":    row.AveragePrice,
			"min_price":        row.MinPrice,
			"max_price":        row.MaxPrice,
			"report_count":     row.ReportCount,
			"confidence":       row.Confidence,
			"last_seen_date":   row.LastSeenDate,
			"last_reported_by": row.LastReportedBy,
			"version":          row.Version,
		})
}

// SaveRecord inserts (expectedVersion 0) or conditionally updates a record
func (s *LedgerStore) SaveRecord(ctx context.Context, record domain.PriceRecord, expectedVersion int64) (*domain.PriceRecord, error) {
	record.Version = expectedVersion + 1
	row := toRow(record)
	db := s.db.WithContext(ctx)

	if expectedVersion == 0 {
		err := db.Create(&row).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrConflict
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		return &record, nil
	}

	res := casUpdate(db, row, expectedVersion)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrConflict
	}
	return &record, nil
}

// ListRecords returns the records of an item, limited to storeID when set
func (s *LedgerStore) ListRecords(ctx context.Context, normalizedName, storeID string) ([]domain.PriceRecord, error) {
	query := s.db.WithContext(ctx).Where("normalized_name = ?", normalizedName)
	if storeID != "" {
		query = query.Where("store_id = ?", storeID)
	}

	var rows []priceRecordRow
	if err := query.Order("store_id, size_key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	records := make([]domain.PriceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

// ListItemNames returns every item name with at least one record
func (s *LedgerStore) ListItemNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&priceRecordRow{}).
		Distinct("normalized_name").
		Order("normalized_name").
		Pluck("normalized_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return names, nil
}

// AppendPurchase stores one purchase
func (s *LedgerStore) AppendPurchase(ctx context.Context, purchase domain.Purchase) error {
	row := purchaseRow{
		UserID:         purchase.UserID,
		NormalizedName: purchase.NormalizedName,
		StoreID:        purchase.StoreID,
		Size:           purchase.Size,
		Price:          purchase.Price,
		PurchasedAt:    purchase.PurchasedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// LatestPurchase returns the most recent purchase of an item by a user
func (s *LedgerStore) LatestPurchase(ctx context.Context, userID, normalizedName string) (*domain.Purchase, error) {
	var row purchaseRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND normalized_name = ?", userID, normalizedName).
		Order("purchased_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	return &domain.Purchase{
		UserID:         row.UserID,
		NormalizedName: row.NormalizedName,
		StoreID:        row.StoreID,
		Size:           row.Size,
		Price:          row.Price,
		PurchasedAt:    row.PurchasedAt.UTC(),
	}, nil
}
