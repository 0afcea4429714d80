package comparables

import (
	"context"
	"fmt"
	"time"

	"homescope/server/internal/models"
)

// CMAOptions parameterises GenerateCMA.
type CMAOptions struct {
	Limit           int
	BaseRatePerSqft int64
	// IncludeSold drops the status filter so sold and pending listings
	// contribute evidence. When false only active listings are used.
	IncludeSold bool
	Insights    models.MarketInsights
}

// GenerateCMA values an arbitrary subject and attaches comparables whose
// prices are adjusted for living area.
func (e *Engine) GenerateCMA(ctx context.Context, subject models.CMASubject, opts CMAOptions) (*models.CMAReport, error) {
	if subject.City == "" {
		return nil, fmt.Errorf("%w: city is required", ErrInvalidReference)
	}
	if subject.Bedrooms == nil {
		return nil, fmt.Errorf("%w: bedrooms is required", ErrInvalidReference)
	}
	if subject.SquareFeet <= 0 {
		return nil, fmt.Errorf("%w: square_feet must be positive", ErrInvalidReference)
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidReference)
	}
	if opts.BaseRatePerSqft <= 0 {
		return nil, fmt.Errorf("base rate per sqft must be positive, got %d", opts.BaseRatePerSqft)
	}

	input := ValuationInputFor(&subject, opts.BaseRatePerSqft)
	referencePrice := EstimateValue(input).Round(0).IntPart()

	var statuses []models.Status
	if !opts.IncludeSold {
		statuses = []models.Status{models.StatusActive}
	}

	// The pool is sized so confidence can reach "high" even for small limits.
	poolLimit := opts.Limit
	if poolLimit < highConfidenceMinimum {
		poolLimit = highConfidenceMinimum
	}

	result, err := e.FindComparables(ctx, subject.Reference(referencePrice), SearchOptions{
		Limit:    poolLimit,
		Statuses: statuses,
	})
	if err != nil {
		return nil, err
	}

	comps := result.Candidates
	if len(comps) > opts.Limit {
		comps = comps[:opts.Limit]
	}
	for i := range comps {
		adjusted := AdjustedPrice(&comps[i].Property, subject.SquareFeet)
		comps[i].AdjustedPrice = &adjusted
	}

	e.metrics.RecordSearch("cma", len(comps))

	return &models.CMAReport{
		SubjectProperty: subject,
		Comparables:     comps,
		Valuation:       Estimate(input, result.PoolSize),
		MarketInsights:  opts.Insights,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}
