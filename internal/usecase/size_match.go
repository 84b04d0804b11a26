package usecase

import (
	"github.com/pricelens/backend/internal/domain"
)

// Size matching defaults shared by the comparator and the repricer
const (
	defaultSizeTolerance  = 0.20
	defaultExactTolerance = 0.01
)

type sizeMatchKind int

const (
	sizeMatchNone sizeMatchKind = iota
	sizeMatchExact
	sizeMatchTolerance
)

// SizeMatchConfig bounds how far a record's size may drift from the wanted size
type SizeMatchConfig struct {
	Tolerance      float64 // accepted relative difference, default 0.20
	ExactTolerance float64 // difference still counted as the same size, default 0.01
}

func (c SizeMatchConfig) withDefaults() SizeMatchConfig {
	if c.Tolerance <= 0 {
		c.Tolerance = defaultSizeTolerance
	}
	if c.ExactTolerance <= 0 {
		c.ExactTolerance = defaultExactTolerance
	}
	if c.ExactTolerance > c.Tolerance {
		c.ExactTolerance = c.Tolerance
	}
	return c
}

// matchBySize picks the record whose size is closest to want. Records are
// expected cheapest first so ties keep the cheaper one. Unparseable sizes only
// match exactly, by canonical key.
func matchBySize(records []domain.PriceRecord, want string, cfg SizeMatchConfig) (*domain.PriceRecord, sizeMatchKind) {
	if want == "" {
		return nil, sizeMatchNone
	}

	target, ok := ParseSize(want)
	if !ok {
		key := SizeKey(want)
		for i := range records {
			if records[i].SizeKey == key {
				return &records[i], sizeMatchExact
			}
		}
		return nil, sizeMatchNone
	}

	var best *domain.PriceRecord
	bestDiff := 0.0
	for i := range records {
		candidate, ok := ParseSize(records[i].Size)
		if !ok {
			continue
		}
		diff, ok := RelativeSizeDifference(candidate, target)
		if !ok || diff > cfg.Tolerance {
			continue
		}
		if best == nil || diff < bestDiff {
			best = &records[i]
			bestDiff = diff
		}
	}

	switch {
	case best == nil:
		return nil, sizeMatchNone
	case bestDiff <= cfg.ExactTolerance:
		return best, sizeMatchExact
	default:
		return best, sizeMatchTolerance
	}
}

// sameSize reports whether two size strings describe the same package size
func sameSize(a, b string, cfg SizeMatchConfig) bool {
	pa, okA := ParseSize(a)
	pb, okB := ParseSize(b)
	if !okA || !okB {
		return SizeKey(a) == SizeKey(b)
	}
	diff, ok := RelativeSizeDifference(pa, pb)
	return ok && diff <= cfg.ExactTolerance
}

// unitOf returns the canonical unit spelling of a size string, or "" when unknown
func unitOf(size string) string {
	if p, ok := ParseSize(size); ok {
		return p.RawUnit
	}
	return ""
}
