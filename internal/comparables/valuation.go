package comparables

import (
	"github.com/shopspring/decimal"

	"homescope/server/internal/models"
)

// sqftAdjustmentPerFoot is the dollar adjustment per square foot of living
// area difference between the subject and a comparable.
const sqftAdjustmentPerFoot = 100

// highConfidenceMinimum is the candidate count at which a valuation is
// reported with high confidence.
const highConfidenceMinimum = 3

var (
	poolPremium       = decimal.NewFromInt(25000)
	waterfrontPremium = decimal.NewFromInt(100000)
	excellentFactor   = decimal.RequireFromString("1.10")
	poorFactor        = decimal.RequireFromString("0.85")
	lowRangeFactor    = decimal.RequireFromString("0.95")
	highRangeFactor   = decimal.RequireFromString("1.08")
)

// ValuationInput carries the subject attributes the estimator reads.
type ValuationInput struct {
	SquareFeet      int
	BaseRatePerSqft int64
	Pool            bool
	Waterfront      bool
	Condition       models.Condition
}

// ValuationInputFor extracts estimator input from a CMA subject.
func ValuationInputFor(subject *models.CMASubject, baseRate int64) ValuationInput {
	return ValuationInput{
		SquareFeet:      subject.SquareFeet,
		BaseRatePerSqft: baseRate,
		Pool:            subject.Pool,
		Waterfront:      subject.Waterfront,
		Condition:       subject.Condition,
	}
}

// EstimateValue returns the unrounded point estimate:
// sqft × rate, plus amenity premiums, then the condition multiplier.
func EstimateValue(in ValuationInput) decimal.Decimal {
	value := decimal.NewFromInt(int64(in.SquareFeet)).Mul(decimal.NewFromInt(in.BaseRatePerSqft))
	if in.Pool {
		value = value.Add(poolPremium)
	}
	if in.Waterfront {
		value = value.Add(waterfrontPremium)
	}

	switch in.Condition {
	case models.ConditionExcellent:
		value = value.Mul(excellentFactor)
	case models.ConditionPoor:
		value = value.Mul(poorFactor)
	}
	return value
}

// Estimate builds the low/mid/high range. Bounds are rounded half away from zero.
func Estimate(in ValuationInput, candidateCount int) models.Valuation {
	value := EstimateValue(in)
	return models.Valuation{
		Low:        value.Mul(lowRangeFactor).Round(0).IntPart(),
		Mid:        value.Round(0).IntPart(),
		High:       value.Mul(highRangeFactor).Round(0).IntPart(),
		Confidence: ConfidenceFor(candidateCount),
	}
}

// ConfidenceFor labels a valuation by how many comparables were found.
func ConfidenceFor(candidateCount int) models.Confidence {
	if candidateCount >= highConfidenceMinimum {
		return models.ConfidenceHigh
	}
	return models.ConfidenceMedium
}

// AdjustedPrice shifts the candidate price by the living area difference.
// Candidates without a known area keep their list price.
func AdjustedPrice(candidate *models.Property, subjectSqft int) int64 {
	candSqft, ok := candidate.KnownSquareFeet()
	if !ok {
		return candidate.Price
	}
	return candidate.Price + int64(subjectSqft-candSqft)*sqftAdjustmentPerFoot
}
