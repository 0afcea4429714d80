package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"homescope/server/internal/models"
)

// DefaultDisclaimer is attached to every CMA report whose assumptions file
// does not provide its own.
const DefaultDisclaimer = "Estimate derived from a fixed per-square-foot formula with amenity and condition " +
	"adjustments. It is not an appraisal or an automated valuation model."

// MarketAssumptions are the static figures the valuation estimator and CMA
// reports read.
type MarketAssumptions struct {
	BaseRatePerSqft int64                 `yaml:"base_rate_per_sqft" toml:"base_rate_per_sqft"`
	Insights        models.MarketInsights `yaml:"market_insights" toml:"market_insights"`
}

// MarketStore holds the current market assumptions, optionally backed by a
// YAML or TOML file.
type MarketStore struct {
	mu       sync.RWMutex
	path     string
	baseRate int64
	current  MarketAssumptions
	logger   *logrus.Logger
}

// NewMarketStore creates a store seeded with defaults derived from baseRate.
// When path is set the file is loaded immediately and must parse.
func NewMarketStore(path string, baseRate int64, logger *logrus.Logger) (*MarketStore, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	s := &MarketStore{
		path:     path,
		baseRate: baseRate,
		current:  defaultAssumptions(baseRate),
		logger:   logger,
	}

	if path != "" {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func defaultAssumptions(baseRate int64) MarketAssumptions {
	return MarketAssumptions{
		BaseRatePerSqft: baseRate,
		Insights: models.MarketInsights{
			AvgDaysOnMarket:    45,
			PriceTrend:         "stable",
			InventoryLevel:     "moderate",
			MedianPricePerSqft: baseRate,
			Disclaimer:         DefaultDisclaimer,
		},
	}
}

// Snapshot returns a copy of the current assumptions.
func (s *MarketStore) Snapshot() MarketAssumptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Load reads the assumptions file. On error the previous values are kept.
func (s *MarketStore) Load() error {
	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read market assumptions: %w", err)
	}

	next, err := parseAssumptions(absPath, data, s.baseRate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"path":               absPath,
		"base_rate_per_sqft": next.BaseRatePerSqft,
	}).Info("Loaded market assumptions")
	return nil
}

func parseAssumptions(path string, data []byte, baseRate int64) (MarketAssumptions, error) {
	parsed := defaultAssumptions(baseRate)

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &parsed)
	case ".toml":
		err = toml.Unmarshal(data, &parsed)
	default:
		return MarketAssumptions{}, fmt.Errorf("unsupported market assumptions format %q", filepath.Ext(path))
	}
	if err != nil {
		return MarketAssumptions{}, fmt.Errorf("failed to parse market assumptions: %w", err)
	}

	if parsed.BaseRatePerSqft <= 0 {
		return MarketAssumptions{}, fmt.Errorf("base_rate_per_sqft must be positive, got %d", parsed.BaseRatePerSqft)
	}
	if parsed.Insights.Disclaimer == "" {
		parsed.Insights.Disclaimer = DefaultDisclaimer
	}
	return parsed, nil
}

// Watch reloads the file whenever it changes until ctx is cancelled. The
// parent directory is watched so editors that replace the file by rename
// are picked up.
func (s *MarketStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Load(); err != nil {
				s.logger.WithError(err).Warn("Keeping previous market assumptions")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("Market assumptions watcher error")
		}
	}
}
