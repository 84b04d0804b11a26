package domain

// Tier is one step of the resolution cascade, in priority order
type Tier int

const (
	TierNone Tier = iota
	TierStoreVariant
	TierPersonal
	TierCrowdsourced
)

func (t Tier) String() string {
	switch t {
	case TierStoreVariant:
		return "store_variant"
	case TierPersonal:
		return "personal"
	case TierCrowdsourced:
		return "crowdsourced"
	case TierNone:
		return "none"
	}
	return "unknown"
}

// Source maps a tier to the price source reported to callers
func (t Tier) Source() PriceSource {
	switch t {
	case TierStoreVariant, TierCrowdsourced:
		return SourceCrowdsourced
	case TierPersonal:
		return SourcePersonal
	case TierNone:
		return SourceNone
	}
	return SourceNone
}

// Resolution is the outcome of resolving an item name to a size and price.
// SizeTier and PriceTier record which tier produced each half; a zero value
// (TierNone for both) means nothing was found.
type Resolution struct {
	Size       string      `json:"size,omitempty"`
	Unit       string      `json:"unit,omitempty"`
	Price      *float64    `json:"price,omitempty"`
	Source     PriceSource `json:"source"`
	Confidence *float64    `json:"confidence,omitempty"`
	SizeTier   Tier        `json:"-"`
	PriceTier  Tier        `json:"-"`
}

// Found reports whether any tier produced a size or a price
func (r Resolution) Found() bool {
	return r.SizeTier != TierNone || r.PriceTier != TierNone
}

// StoreAlternative is the cost of a list at one candidate store
type StoreAlternative struct {
	StoreID         string  `json:"storeId"`
	Total           float64 `json:"total"`
	ItemsCompared   int     `json:"itemsCompared"`
	ItemsWithIssues int     `json:"itemsWithIssues"`
	Savings         float64 `json:"savings"`
}

// ComparisonResult is returned by the store comparator
type ComparisonResult struct {
	CurrentTotal float64            `json:"currentTotal"`
	Alternatives []StoreAlternative `json:"alternatives"`
}

// PriceChange records a repriced item
type PriceChange struct {
	ItemID   string   `json:"itemId"`
	Name     string   `json:"name"`
	OldPrice *float64 `json:"oldPrice,omitempty"`
	NewPrice float64  `json:"newPrice"`
}

// SizeChange records an item whose size changed during a store switch
type SizeChange struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	OldSize  string `json:"oldSize"`
	NewSize  string `json:"newSize"`
	Restored bool   `json:"restored"`
}

// ItemFailure records an item that could not be repriced
type ItemFailure struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Error  string `json:"error"`
}

// SwitchResult summarises a store switch for one list
type SwitchResult struct {
	ListID                   string        `json:"listId"`
	StoreID                  string        `json:"storeId"`
	PriceChanges             []PriceChange `json:"priceChanges"`
	SizeChanges              []SizeChange  `json:"sizeChanges"`
	Failures                 []ItemFailure `json:"failures,omitempty"`
	ItemsUpdated             int           `json:"itemsUpdated"`
	ManualOverridesPreserved int           `json:"manualOverridesPreserved"`
	PreviousTotal            float64       `json:"previousTotal"`
	NewTotal                 float64       `json:"newTotal"`
	Savings                  float64       `json:"savings"`
}

// EstimateResult summarises an AI estimation pass over a list
type EstimateResult struct {
	ListID         string        `json:"listId"`
	ItemsEstimated int           `json:"itemsEstimated"`
	Failures       []ItemFailure `json:"failures,omitempty"`
}
