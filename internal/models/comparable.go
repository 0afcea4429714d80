package models

import "time"

// Reference is the property comparables are measured against. It is built
// either from a stored Property or from caller-supplied attributes.
type Reference struct {
	ID           string
	City         string
	State        string
	PostalCode   string
	Price        int64
	Bedrooms     int
	Bathrooms    float64
	SquareFeet   *int
	PropertyType PropertyType
	YearBuilt    *int
	Pool         bool
	Waterfront   bool
	Latitude     *float64
	Longitude    *float64
}

// ReferenceFromProperty copies the attributes used for matching and scoring.
func ReferenceFromProperty(p *Property) Reference {
	return Reference{
		ID:           p.ID,
		City:         p.City,
		State:        p.State,
		PostalCode:   p.PostalCode,
		Price:        p.Price,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		SquareFeet:   p.SquareFeet,
		PropertyType: p.PropertyType,
		YearBuilt:    p.YearBuilt,
		Pool:         p.Pool,
		Waterfront:   p.Waterfront,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
	}
}

// KnownSquareFeet returns the reference living area and whether it is usable.
func (r Reference) KnownSquareFeet() (int, bool) {
	if r.SquareFeet == nil || *r.SquareFeet <= 0 {
		return 0, false
	}
	return *r.SquareFeet, true
}

// ScoredCandidate is a comparable with its derived fields.
type ScoredCandidate struct {
	Property
	SimilarityScore int      `json:"similarity_score"`
	AdjustedPrice   *int64   `json:"adjusted_price,omitempty"`
	DistanceMiles   *float64 `json:"distance_miles,omitempty"`
}

// Condition is the self-reported state of a CMA subject.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionAverage   Condition = "average"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// IsValid reports whether c is a recognised condition.
func (c Condition) IsValid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionAverage, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// CMASubject is the property a CMA report values. It need not be stored.
type CMASubject struct {
	Address      string       `json:"address"`
	City         string       `json:"city" validate:"required"`
	State        string       `json:"state"`
	PostalCode   string       `json:"postal_code"`
	Bedrooms     *int         `json:"bedrooms" validate:"required,gte=0"`
	Bathrooms    float64      `json:"bathrooms" validate:"gte=0"`
	SquareFeet   int          `json:"square_feet" validate:"required,gt=0"`
	YearBuilt    *int         `json:"year_built" validate:"omitempty,gte=1600,lte=2100"`
	Condition    Condition    `json:"condition" default:"average" validate:"oneof=excellent good average fair poor"`
	PropertyType PropertyType `json:"property_type" default:"single_family" validate:"oneof=single_family condo townhouse multi_family land mobile"`
	Pool         bool         `json:"pool"`
	Waterfront   bool         `json:"waterfront"`
	Latitude     *float64     `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64     `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// Reference converts the subject into a scoring reference priced at price.
func (s *CMASubject) Reference(price int64) Reference {
	sqft := s.SquareFeet
	var bedrooms int
	if s.Bedrooms != nil {
		bedrooms = *s.Bedrooms
	}
	return Reference{
		City:         s.City,
		State:        s.State,
		PostalCode:   s.PostalCode,
		Price:        price,
		Bedrooms:     bedrooms,
		Bathrooms:    s.Bathrooms,
		SquareFeet:   &sqft,
		PropertyType: s.PropertyType,
		YearBuilt:    s.YearBuilt,
		Pool:         s.Pool,
		Waterfront:   s.Waterfront,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
	}
}

// Confidence labels how much comparable evidence backs a valuation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Valuation is a fixed-formula price range. It is not a calibrated AVM.
type Valuation struct {
	Low        int64      `json:"low"`
	Mid        int64      `json:"mid"`
	High       int64      `json:"high"`
	Confidence Confidence `json:"confidence"`
}

// MarketInsights holds the static market figures echoed in CMA reports.
type MarketInsights struct {
	AvgDaysOnMarket    int    `json:"avg_days_on_market" yaml:"avg_days_on_market" toml:"avg_days_on_market"`
	PriceTrend         string `json:"price_trend" yaml:"price_trend" toml:"price_trend"`
	InventoryLevel     string `json:"inventory_level" yaml:"inventory_level" toml:"inventory_level"`
	MedianPricePerSqft int64  `json:"median_price_per_sqft" yaml:"median_price_per_sqft" toml:"median_price_per_sqft"`
	Disclaimer         string `json:"disclaimer" yaml:"disclaimer" toml:"disclaimer"`
}

// CMAReport is the response of a comparative market analysis.
type CMAReport struct {
	SubjectProperty CMASubject        `json:"subject_property"`
	Comparables     []ScoredCandidate `json:"comparables"`
	Valuation       Valuation         `json:"valuation"`
	MarketInsights  MarketInsights    `json:"market_insights"`
	GeneratedAt     time.Time         `json:"generated_at"`
}
