package usecase

import (
	"math"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultDecayDays      = 30.0
	minExistingWeight     = 0.3
	countFactorCap        = 0.5
	countFactorSaturation = 10.0
	recencyFactorScale    = 0.5
)

// ConfidencePolicy owns the weighting math of the price ledger. Every method
// is a pure function of its arguments.
type ConfidencePolicy interface {
	// NewWeight is the merge weight of an observation seen at observed, as of asOf
	NewWeight(observed, asOf time.Time) float64
	// ExistingWeight is the merge weight of the prior average last updated at lastSeen
	ExistingWeight(lastSeen, asOf time.Time) float64
	// InitialConfidence scores a freshly inserted record
	InitialConfidence(observed, asOf time.Time) float64
	// Confidence scores a record with reportCount reports last seen at lastSeen
	Confidence(reportCount int, lastSeen, asOf time.Time) float64
}

// DecayPolicy is the linear recency decay used by the ledger: weights fall to
// zero DecayDays after an observation.
type DecayPolicy struct {
	DecayDays float64
}

// NewDecayPolicy returns a policy with the given decay window, defaulting to 30 days
func NewDecayPolicy(decayDays float64) DecayPolicy {
	if decayDays <= 0 {
		decayDays = defaultDecayDays
	}
	return DecayPolicy{DecayDays: decayDays}
}

func (p DecayPolicy) decay(from, to time.Time) float64 {
	return 1 - daysBetween(from, to)/p.window()
}

func (p DecayPolicy) window() float64 {
	if p.DecayDays <= 0 {
		return defaultDecayDays
	}
	return p.DecayDays
}

func (p DecayPolicy) NewWeight(observed, asOf time.Time) float64 {
	return math.Max(0, p.decay(observed, asOf))
}

func (p DecayPolicy) ExistingWeight(lastSeen, asOf time.Time) float64 {
	return math.Max(minExistingWeight, p.decay(lastSeen, asOf))
}

func (p DecayPolicy) InitialConfidence(observed, asOf time.Time) float64 {
	return p.recencyFactor(observed, asOf)
}

func (p DecayPolicy) Confidence(reportCount int, lastSeen, asOf time.Time) float64 {
	countFactor := math.Min(float64(reportCount)/countFactorSaturation, countFactorCap)
	return math.Min(1, countFactor+p.recencyFactor(lastSeen, asOf))
}

func (p DecayPolicy) recencyFactor(observed, asOf time.Time) float64 {
	return math.Max(0, recencyFactorScale*p.decay(observed, asOf))
}

// EffectiveConfidence re-scores a stored record as of a later time. A record
// with a single report keeps the recency-only scoring it was inserted with.
func EffectiveConfidence(policy ConfidencePolicy, record domain.PriceRecord, asOf time.Time) float64 {
	if record.ReportCount <= 1 {
		return policy.InitialConfidence(record.LastSeenDate, asOf)
	}
	return policy.Confidence(record.ReportCount, record.LastSeenDate, asOf)
}

// daysBetween returns the non-negative number of days from one instant to another
func daysBetween(from, to time.Time) float64 {
	d := to.Sub(from).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}
