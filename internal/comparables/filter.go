package comparables

import (
	"context"
	"math"

	"homescope/server/internal/models"
)

const (
	// priceBand is the fractional distance from the reference price a candidate may sit.
	priceBand = 0.25
	// bedroomBand is how many bedrooms a candidate may differ by.
	bedroomBand = 1
)

// BuildCriteria returns the primary candidate query for ref: same city,
// price within ±25%, bedrooms within ±1, reference excluded by ID.
func BuildCriteria(ref models.Reference, opts SearchOptions) models.CandidateCriteria {
	minBedrooms := ref.Bedrooms - bedroomBand
	if minBedrooms < 0 {
		minBedrooms = 0
	}

	criteria := models.CandidateCriteria{
		City:        ref.City,
		MinPrice:    int64(math.Ceil(float64(ref.Price) * (1 - priceBand))),
		MaxPrice:    int64(math.Floor(float64(ref.Price) * (1 + priceBand))),
		MinBedrooms: minBedrooms,
		MaxBedrooms: ref.Bedrooms + bedroomBand,
		Statuses:    opts.Statuses,
		Limit:       opts.Limit,
	}
	if ref.ID != "" {
		criteria.ExcludeIDs = []string{ref.ID}
	}
	return criteria
}

// expand drops the city constraint and asks for the remaining slots. It is
// best-effort: on failure the current pool is returned unchanged.
func (e *Engine) expand(ctx context.Context, referenceID string, criteria models.CandidateCriteria, current []models.Property) []models.Property {
	wider := criteria
	wider.City = ""
	wider.Limit = criteria.Limit - len(current)
	wider.ExcludeIDs = make([]string, 0, len(criteria.ExcludeIDs)+len(current))
	wider.ExcludeIDs = append(wider.ExcludeIDs, criteria.ExcludeIDs...)
	for _, p := range current {
		wider.ExcludeIDs = append(wider.ExcludeIDs, p.ID)
	}

	extra, err := e.store.FindCandidates(ctx, wider)
	if err != nil {
		e.logger.WithError(err).WithField("partial_count", len(current)).
			Warn("Fallback expansion failed, returning partial candidates")
		e.metrics.RecordFallback("error")
		return current
	}
	e.metrics.RecordFallback("ok")

	merged := mergeCandidates(referenceID, current, e.dropInvalid(extra))
	if len(merged) > criteria.Limit {
		merged = merged[:criteria.Limit]
	}
	return merged
}

// mergeCandidates concatenates the lists keeping the first occurrence of
// each ID and never the reference itself.
func mergeCandidates(referenceID string, primary, extra []models.Property) []models.Property {
	seen := make(map[string]struct{}, len(primary)+len(extra))
	merged := make([]models.Property, 0, len(primary)+len(extra))

	for _, list := range [][]models.Property{primary, extra} {
		for _, p := range list {
			if referenceID != "" && p.ID == referenceID {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}
