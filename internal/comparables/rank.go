package comparables

import (
	"sort"

	"homescope/server/internal/models"
)

// Rank orders candidates by score descending, then price ascending, then ID,
// and truncates to limit. The input slice is not modified.
func Rank(candidates []models.ScoredCandidate, limit int) []models.ScoredCandidate {
	ranked := make([]models.ScoredCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.ID < b.ID
	})

	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
