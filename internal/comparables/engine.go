// Package comparables selects and scores comparable properties for the
// similar-listings feature and for CMA reports.
package comparables

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"homescope/server/internal/models"
	"homescope/server/internal/storage"
)

// ErrInvalidReference marks a caller error in the reference property or limit.
var ErrInvalidReference = errors.New("invalid reference property")

// Metrics receives engine observations. A nil Metrics is allowed.
type Metrics interface {
	RecordSearch(kind string, candidates int)
	RecordFallback(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordSearch(string, int) {}
func (noopMetrics) RecordFallback(string)    {}

// Engine runs candidate selection against a property store. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	store   storage.PropertyReader
	logger  *logrus.Logger
	metrics Metrics
}

// NewEngine creates an engine reading from store.
func NewEngine(store storage.PropertyReader, logger *logrus.Logger, metrics Metrics) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{store: store, logger: logger, metrics: metrics}
}

// SearchOptions parameterises a comparable search.
type SearchOptions struct {
	Limit int
	// Statuses restricts eligible candidates. Nil applies no status filter.
	Statuses []models.Status
}

// SearchResult is the ranked output of FindComparables.
type SearchResult struct {
	Candidates []models.ScoredCandidate
	// PoolSize is the merged candidate count before truncation.
	PoolSize int
	Expanded bool
}

// FindComparables runs the candidate filter, the fallback expander when the
// filter comes up short, then scores and ranks the merged pool.
func (e *Engine) FindComparables(ctx context.Context, ref models.Reference, opts SearchOptions) (*SearchResult, error) {
	if err := validateReference(ref, opts.Limit); err != nil {
		return nil, err
	}

	criteria := BuildCriteria(ref, opts)
	pool, err := e.store.FindCandidates(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("candidate filter: %w", err)
	}
	pool = e.dropInvalid(mergeCandidates(ref.ID, pool, nil))

	expanded := false
	if len(pool) < opts.Limit {
		pool = e.expand(ctx, ref.ID, criteria, pool)
		expanded = true
	}

	scored := make([]models.ScoredCandidate, 0, len(pool))
	for i := range pool {
		scored = append(scored, models.ScoredCandidate{
			Property:        pool[i],
			SimilarityScore: Score(ref, &pool[i]),
			DistanceMiles:   DistanceMiles(ref, &pool[i]),
		})
	}

	ranked := Rank(scored, opts.Limit)

	e.logger.WithFields(logrus.Fields{
		"reference_id": ref.ID,
		"city":         ref.City,
		"pool_size":    len(scored),
		"returned":     len(ranked),
		"expanded":     expanded,
	}).Debug("Comparable search completed")

	return &SearchResult{Candidates: ranked, PoolSize: len(scored), Expanded: expanded}, nil
}

// SimilarTo returns the stored reference property and its active comparables.
func (e *Engine) SimilarTo(ctx context.Context, propertyID string, limit int) (*models.Property, []models.ScoredCandidate, error) {
	if propertyID == "" {
		return nil, nil, fmt.Errorf("%w: property_id is required", ErrInvalidReference)
	}

	reference, err := e.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}

	result, err := e.FindComparables(ctx, models.ReferenceFromProperty(reference), SearchOptions{
		Limit:    limit,
		Statuses: []models.Status{models.StatusActive},
	})
	if err != nil {
		return nil, nil, err
	}

	e.metrics.RecordSearch("similar", len(result.Candidates))
	return reference, result.Candidates, nil
}

// dropInvalid removes rows that fail schema validation so scoring only sees
// well-formed properties. It runs on every query result before slots are
// counted.
func (e *Engine) dropInvalid(pool []models.Property) []models.Property {
	valid := make([]models.Property, 0, len(pool))
	for _, p := range pool {
		if err := p.Validate(); err != nil {
			e.logger.WithError(err).WithField("property_id", p.ID).Warn("Skipping invalid candidate row")
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

func validateReference(ref models.Reference, limit int) error {
	switch {
	case ref.City == "":
		return fmt.Errorf("%w: city is required", ErrInvalidReference)
	case ref.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidReference)
	case ref.Bedrooms < 0:
		return fmt.Errorf("%w: bedrooms must not be negative", ErrInvalidReference)
	case limit <= 0:
		return fmt.Errorf("%w: limit must be positive", ErrInvalidReference)
	}
	return nil
}
