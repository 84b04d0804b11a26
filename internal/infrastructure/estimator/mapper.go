package estimator

import (
	"fmt"
	"math"

	"github.com/pricelens/backend/internal/domain"
)

// estimateResponse is the estimator's wire format
type estimateResponse struct {
	Item       string  `json:"item"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency,omitempty"`
	Size       string  `json:"size,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	Confidence float64 `json:"confidence"`
}

// defaultConfidence is used when the service omits a confidence
const defaultConfidence = 0.5

// mapToEstimate validates a response and converts it to the domain type
func mapToEstimate(resp estimateResponse) (*domain.PriceEstimate, error) {
	if resp.Price <= 0 || math.IsNaN(resp.Price) || math.IsInf(resp.Price, 0) {
		return nil, fmt.Errorf("%w: invalid price %v", domain.ErrEstimatorFailure, resp.Price)
	}
	if resp.Currency != "" && resp.Currency != "USD" {
		return nil, fmt.Errorf("%w: unsupported currency %s", domain.ErrEstimatorFailure, resp.Currency)
	}

	return &domain.PriceEstimate{
		Price:      math.Round(resp.Price*100) / 100,
		Size:       resp.Size,
		Unit:       resp.Unit,
		Confidence: clampConfidence(resp.Confidence),
	}, nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c <= 0 || math.IsNaN(c):
		return defaultConfidence
	case c > 1:
		return 1
	default:
		return c
	}
}
