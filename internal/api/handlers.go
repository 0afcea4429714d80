package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homescope/server/config"
	"homescope/server/internal/comparables"
	"homescope/server/internal/geocoding"
	"homescope/server/internal/models"
	"homescope/server/internal/storage"
)

// Importer queues properties for asynchronous upsert.
type Importer interface {
	Submit(properties []*models.Property) (int, error)
}

// MarketSource provides the current market assumptions.
type MarketSource interface {
	Snapshot() config.MarketAssumptions
}

// Geocoder resolves street addresses to coordinates.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, addr geocoding.Address) (float64, float64, error)
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	Importer Importer
	Market   MarketSource
	Geocoder Geocoder
}

type Handler struct {
	store    storage.PropertyStore
	engine   *comparables.Engine
	importer Importer
	market   MarketSource
	geocoder Geocoder
	config   *config.Config
	logger   *logrus.Logger
}

func NewHandler(store storage.PropertyStore, engine *comparables.Engine, cfg *config.Config, opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	market := opts.Market
	if market == nil {
		// Without a file the store only serves defaults and cannot fail.
		market, _ = config.NewMarketStore("", cfg.Comparables.BaseRatePerSqft, logger)
	}

	return &Handler{
		store:    store,
		engine:   engine,
		importer: opts.Importer,
		market:   market,
		geocoder: opts.Geocoder,
		config:   cfg,
		logger:   logger,
	}
}

// SimilarPropertiesResponse is the body of GET /similar-properties.
type SimilarPropertiesResponse struct {
	ReferenceProperty *models.Property         `json:"reference_property"`
	SimilarProperties []models.ScoredCandidate `json:"similar_properties"`
}

// CMARequest is the body of POST /cma/generate.
type CMARequest struct {
	models.CMASubject
	Limit int `json:"limit" validate:"omitempty,gte=1"`
}

func (h *Handler) GetSimilarProperties(c *gin.Context) {
	propertyID := strings.TrimSpace(c.Query("property_id"))
	if propertyID == "" {
		h.badRequest(c, "property_id is required")
		return
	}

	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}

	reference, similar, err := h.engine.SimilarTo(c.Request.Context(), propertyID, limit)
	if err != nil {
		h.respondError(c, err, "Failed to find similar properties")
		return
	}

	if c.Query("format") == "geojson" {
		c.JSON(http.StatusOK, comparables.FeatureCollection(reference, similar))
		return
	}

	c.JSON(http.StatusOK, SimilarPropertiesResponse{
		ReferenceProperty: reference,
		SimilarProperties: similar,
	})
}

func (h *Handler) GenerateCMA(c *gin.Context) {
	var req CMARequest
	if details := bindAndValidate(c, &req); details != nil {
		h.badRequest(c, "Invalid CMA request", details...)
		return
	}
	subject := req.CMASubject
	h.geocodeSubject(c.Request.Context(), &subject)

	market := h.market.Snapshot()
	report, err := h.engine.GenerateCMA(c.Request.Context(), subject, comparables.CMAOptions{
		Limit:           h.config.ClampLimit(req.Limit),
		BaseRatePerSqft: market.BaseRatePerSqft,
		IncludeSold:     h.config.Comparables.CMAIncludeSold,
		Insights:        market.Insights,
	})
	if err != nil {
		h.respondError(c, err, "Failed to generate CMA")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// geocodeSubject fills in coordinates for subjects that only carry an
// address. Failures are logged and otherwise ignored.
func (h *Handler) geocodeSubject(ctx context.Context, subject *models.CMASubject) {
	if h.geocoder == nil || subject.Latitude != nil || subject.Longitude != nil || subject.Address == "" {
		return
	}

	lat, lon, err := h.geocoder.GeocodeAddress(ctx, geocoding.Address{
		Street:     subject.Address,
		City:       subject.City,
		State:      subject.State,
		PostalCode: subject.PostalCode,
	})
	if err != nil {
		h.logger.WithError(err).WithField("address", subject.Address).Warn("Failed to geocode CMA subject")
		return
	}
	subject.Latitude = &lat
	subject.Longitude = &lon
}

// parseLimit reads ?limit, applying the configured default and clamp. It
// writes a 400 response and returns false on malformed input.
func (h *Handler) parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return h.config.ClampLimit(0), true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		h.badRequest(c, "limit must be a positive integer")
		return 0, false
	}
	return h.config.ClampLimit(limit), true
}
