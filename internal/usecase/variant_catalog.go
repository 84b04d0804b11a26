package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// VariantCatalog maintains the known size variants the cascade's first tier
// reads. Variants are stored under the normalized base item name so lookups
// by any spelling of the item find them.
type VariantCatalog struct {
	repo   domain.VariantRepository
	logger zerolog.Logger
}

// NewVariantCatalog creates a catalog over a variant repository
func NewVariantCatalog(repo domain.VariantRepository, logger zerolog.Logger) *VariantCatalog {
	return &VariantCatalog{
		repo:   repo,
		logger: logger.With().Str("component", "variants").Logger(),
	}
}

// Save validates a variant, fills its unit, category and name from the size
// and stores it. A variant with the same base item, store and name is replaced.
func (c *VariantCatalog) Save(ctx context.Context, variant domain.Variant) (*domain.Variant, error) {
	variant.BaseItem = Normalize(variant.BaseItem)
	variant.Size = strings.TrimSpace(variant.Size)
	if variant.BaseItem == "" || variant.Size == "" {
		return nil, domain.ErrInvalidRequest
	}
	if math.IsNaN(variant.Commonality) || variant.Commonality < 0 || variant.Commonality > 1 {
		return nil, domain.ErrInvalidRequest
	}
	if p := variant.EstimatedPrice; p != nil && (*p <= 0 || math.IsNaN(*p) || math.IsInf(*p, 0)) {
		return nil, domain.ErrInvalidRequest
	}

	variant.Category = domain.CategoryUnknown
	if parsed, ok := ParseSize(variant.Size); ok {
		variant.Category = parsed.Category
		if variant.Unit == "" {
			variant.Unit = parsed.RawUnit
		}
	}
	if strings.TrimSpace(variant.VariantName) == "" {
		variant.VariantName = variant.BaseItem + " " + variant.Size
	}

	if err := c.repo.SaveVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("failed to save variant %q: %w", variant.VariantName, err)
	}

	c.logger.Debug().
		Str("item", variant.BaseItem).
		Str("store", variant.StoreID).
		Str("size", variant.Size).
		Float64("commonality", variant.Commonality).
		Msg("variant saved")
	return &variant, nil
}

// List returns the variants of an item known at a store, most common first
func (c *VariantCatalog) List(ctx context.Context, itemName, storeID string) ([]domain.Variant, error) {
	name := Normalize(itemName)
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}

	variants, err := c.repo.ListVariants(ctx, name, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants for %q: %w", name, err)
	}
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Commonality > variants[j].Commonality
	})
	if variants == nil {
		variants = []domain.Variant{}
	}
	return variants, nil
}
