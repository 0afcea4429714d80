package comparables

import (
	"math"

	"homescope/server/internal/models"
)

const (
	baseScore          = 100.0
	pricePenaltyWeight = 30.0
	bedroomPenalty     = 10.0
	cityMatchBonus     = 10.0
	typeMatchBonus     = 15.0
	sqftPenaltyWeight  = 20.0
)

// Score returns the similarity of candidate to ref. The result is an
// integer, never negative, and has no upper bound: an identical candidate
// in the same city and of the same type scores 125.
func Score(ref models.Reference, candidate *models.Property) int {
	score := baseScore

	refPrice := float64(ref.Price)
	if refPrice > 0 {
		score -= pricePenaltyWeight * math.Abs(float64(candidate.Price)-refPrice) / refPrice
	}

	score -= bedroomPenalty * math.Abs(float64(candidate.Bedrooms-ref.Bedrooms))

	if candidate.City == ref.City {
		score += cityMatchBonus
	}
	if candidate.PropertyType == ref.PropertyType {
		score += typeMatchBonus
	}

	if refSqft, ok := ref.KnownSquareFeet(); ok {
		if candSqft, ok := candidate.KnownSquareFeet(); ok {
			score -= sqftPenaltyWeight * math.Abs(float64(candSqft-refSqft)) / float64(refSqft)
		}
	}

	if score < 0 {
		score = 0
	}
	return int(math.Round(score))
}
