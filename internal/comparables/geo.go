package comparables

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"homescope/server/internal/models"
)

const metersPerMile = 1609.344

// DistanceMiles returns the great-circle distance between the reference and
// the candidate rounded to two decimals, or nil when either lacks coordinates.
func DistanceMiles(ref models.Reference, candidate *models.Property) *float64 {
	if ref.Latitude == nil || ref.Longitude == nil || !candidate.HasCoordinates() {
		return nil
	}

	meters := geo.DistanceHaversine(
		orb.Point{*ref.Longitude, *ref.Latitude},
		orb.Point{*candidate.Longitude, *candidate.Latitude},
	)
	miles := math.Round(meters/metersPerMile*100) / 100
	return &miles
}

// FeatureCollection renders the reference and its comparables as GeoJSON
// points. Properties without coordinates are left out.
func FeatureCollection(reference *models.Property, candidates []models.ScoredCandidate) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if reference != nil && reference.HasCoordinates() {
		f := geojson.NewFeature(orb.Point{*reference.Longitude, *reference.Latitude})
		f.ID = reference.ID
		f.Properties = featureProperties(reference)
		f.Properties["role"] = "reference"
		fc.Append(f)
	}

	for i := range candidates {
		c := &candidates[i]
		if !c.HasCoordinates() {
			continue
		}
		f := geojson.NewFeature(orb.Point{*c.Longitude, *c.Latitude})
		f.ID = c.ID
		f.Properties = featureProperties(&c.Property)
		f.Properties["role"] = "comparable"
		f.Properties["similarity_score"] = c.SimilarityScore
		if c.DistanceMiles != nil {
			f.Properties["distance_miles"] = *c.DistanceMiles
		}
		fc.Append(f)
	}

	return fc
}

func featureProperties(p *models.Property) geojson.Properties {
	return geojson.Properties{
		"id":            p.ID,
		"address":       p.Address,
		"city":          p.City,
		"price":         p.Price,
		"bedrooms":      p.Bedrooms,
		"property_type": p.PropertyType,
		"status":        p.Status,
	}
}
