package domain

import (
	"fmt"
	"time"
)

// SizeCategory groups units that can be compared with each other
type SizeCategory string

const (
	CategoryVolume  SizeCategory = "volume"
	CategoryWeight  SizeCategory = "weight"
	CategoryCount   SizeCategory = "count"
	CategoryUnknown SizeCategory = "unknown"
)

// ParsedSize is a package size converted to the base unit of its category
// (millilitres for volume, grams for weight, items for count)
type ParsedSize struct {
	NormalizedValue float64      `json:"normalizedValue"`
	Unit            string       `json:"unit"`    // base unit: "ml", "g" or "ct"
	RawUnit         string       `json:"rawUnit"` // canonical spelling of the unit as written, e.g. "l", "fl oz"
	Category        SizeCategory `json:"category"`
}

// Comparable reports whether two sizes share a known category
func (p ParsedSize) Comparable(other ParsedSize) bool {
	return p.Category != CategoryUnknown && p.Category == other.Category
}

// RecordKey identifies one ledger row: a normalized item at a store in one package size.
// SizeKey is empty when the observation carried no size.
type RecordKey struct {
	NormalizedName string `json:"normalizedName"`
	StoreID        string `json:"storeId"`
	SizeKey        string `json:"sizeKey"`
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.NormalizedName, k.StoreID, k.SizeKey)
}

// PriceRecord is the rolling price aggregate for one RecordKey
type PriceRecord struct {
	NormalizedName string    `json:"normalizedName"`
	StoreID        string    `json:"storeId"`
	Size           string    `json:"size,omitempty"`
	SizeKey        string    `json:"sizeKey"`
	UnitPrice      float64   `json:"unitPrice"`
	AveragePrice   float64   `json:"averagePrice"`
	MinPrice       float64   `json:"minPrice"`
	MaxPrice       float64   `json:"maxPrice"`
	ReportCount    int       `json:"reportCount"`
	Confidence     float64   `json:"confidence"` // 0..1
	LastSeenDate   time.Time `json:"lastSeenDate"`
	LastReportedBy string    `json:"lastReportedBy,omitempty"`
	Version        int64     `json:"version"`
}

// Key returns the ledger key of the record
func (r PriceRecord) Key() RecordKey {
	return RecordKey{NormalizedName: r.NormalizedName, StoreID: r.StoreID, SizeKey: r.SizeKey}
}

// Observation is one price seen on a receipt line
type Observation struct {
	ItemName   string    `json:"itemName" binding:"required"`
	StoreID    string    `json:"storeId" binding:"required"`
	Price      float64   `json:"price" binding:"required"`
	Size       string    `json:"size,omitempty"`
	ObservedAt time.Time `json:"observedAt" binding:"required"`
	// RecordedAt is when the observation reached the ledger; it is the reference
	// point for recency weighting. Defaults to ObservedAt.
	RecordedAt time.Time `json:"recordedAt,omitempty"`
	ReporterID string    `json:"reporterId,omitempty"`
}

// UpsertOutcome describes what the ledger did with an observation
type UpsertOutcome string

const (
	OutcomeInserted  UpsertOutcome = "inserted"
	OutcomeMerged    UpsertOutcome = "merged"
	OutcomeDuplicate UpsertOutcome = "duplicate"
	OutcomeStale     UpsertOutcome = "stale"
)

// UpsertResult is returned by the ledger for every observation
type UpsertResult struct {
	Record  PriceRecord   `json:"record"`
	Outcome UpsertOutcome `json:"outcome"`
}

// Variant is a known size/packaging option of a base item.
// An empty StoreID means the variant is known for every store.
type Variant struct {
	BaseItem       string       `json:"baseItem"`
	VariantName    string       `json:"variantName"`
	StoreID        string       `json:"storeId,omitempty"`
	Size           string       `json:"size"`
	Unit           string       `json:"unit"`
	Category       SizeCategory `json:"category"`
	Commonality    float64      `json:"commonality"` // 0..1
	EstimatedPrice *float64     `json:"estimatedPrice,omitempty"`
}

// Purchase is one price a user paid for an item
type Purchase struct {
	UserID         string    `json:"userId"`
	NormalizedName string    `json:"normalizedName"`
	StoreID        string    `json:"storeId"`
	Size           string    `json:"size,omitempty"`
	Price          float64   `json:"price"`
	PurchasedAt    time.Time `json:"purchasedAt"`
}

// PriceEstimate is a price suggested by the external estimator
type PriceEstimate struct {
	Price      float64 `json:"price"`
	Size       string  `json:"size,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Confidence float64 `json:"confidence"`
}
