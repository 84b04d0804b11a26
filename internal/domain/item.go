package domain

// PriceSource tells where an item's price came from
type PriceSource string

const (
	SourceNone         PriceSource = ""
	SourcePersonal     PriceSource = "personal"
	SourceCrowdsourced PriceSource = "crowdsourced"
	SourceAI           PriceSource = "ai"
	SourceManual       PriceSource = "manual"
)

// ListItem is a shopping list entry owned by the list service
type ListItem struct {
	ID              string      `json:"id"`
	ListID          string      `json:"listId"`
	Name            string      `json:"name" binding:"required"`
	Quantity        float64     `json:"quantity"`
	Size            string      `json:"size,omitempty"`
	Unit            string      `json:"unit,omitempty"`
	EstimatedPrice  *float64    `json:"estimatedPrice,omitempty"`
	PriceSource     PriceSource `json:"priceSource,omitempty"`
	PriceConfidence *float64    `json:"priceConfidence,omitempty"`
	PriceOverride   bool        `json:"priceOverride"`
	SizeOverride    bool        `json:"sizeOverride"`
	OriginalSize    string      `json:"originalSize,omitempty"`
	// PricedStoreID is the store the current price was resolved for
	PricedStoreID string `json:"pricedStoreId,omitempty"`
}

// Qty returns the quantity, treating unset or negative values as 1
func (i ListItem) Qty() float64 {
	if i.Quantity <= 0 {
		return 1
	}
	return i.Quantity
}

// Price returns the estimated price or zero when unknown
func (i ListItem) Price() float64 {
	if i.EstimatedPrice == nil {
		return 0
	}
	return *i.EstimatedPrice
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}
