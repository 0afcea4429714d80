package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homescope/server/config"
	"homescope/server/internal/comparables"
	"homescope/server/internal/database"
	"homescope/server/internal/geocoding"
	"homescope/server/internal/metrics"
	"homescope/server/internal/models"
	"homescope/server/internal/processor"
	"homescope/server/internal/queue"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Comparables.DefaultLimit = 6
	cfg.Comparables.MaxLimit = 50
	cfg.Comparables.CMAIncludeSold = true
	cfg.Comparables.BaseRatePerSqft = 250
	cfg.BatchProcessing.MaxBatchSize = 100
	cfg.BatchProcessing.QueueSize = 4
	cfg.BatchProcessing.ProcessorCount = 1
	return cfg
}

func ptr[T any](v T) *T {
	return &v
}

type testEnv struct {
	db      *database.Database
	handler *Handler
	router  *gin.Engine
}

func setupTestEnv(t *testing.T, cfg *config.Config, opts Options) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "api.db"), testLogger())
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	seed := []*models.Property{
		{ID: "ref", Address: "100 Gulf Shore Blvd", City: "Naples", State: "FL", Price: 500000, Bedrooms: 3, Bathrooms: 2,
			SquareFeet: ptr(2000), PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusActive,
			Latitude: ptr(26.1420), Longitude: ptr(-81.7948)},
		{ID: "a", City: "Naples", State: "FL", Price: 450000, Bedrooms: 3, Bathrooms: 2,
			SquareFeet: ptr(2000), PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusActive,
			Latitude: ptr(26.1500), Longitude: ptr(-81.8000)},
		{ID: "b", City: "Naples", State: "FL", Price: 625000, Bedrooms: 3, Bathrooms: 2.5,
			SquareFeet: ptr(2000), PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusActive},
		{ID: "s", City: "Naples", State: "FL", Price: 520000, Bedrooms: 3, Bathrooms: 2,
			SquareFeet: ptr(1900), PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusSold},
		{ID: "c", City: "Fort Myers", State: "FL", Price: 500000, Bedrooms: 3, Bathrooms: 2,
			SquareFeet: ptr(2000), PropertyType: models.PropertyTypeCondo, Status: models.StatusActive},
		{ID: "free", City: "Naples", State: "FL", Price: 0, Bedrooms: 3,
			PropertyType: models.PropertyTypeLand, Status: models.StatusOffMarket},
	}
	require.NoError(t, db.UpsertProperties(context.Background(), seed))

	engine := comparables.NewEngine(db, testLogger(), nil)
	handler := NewHandler(db, engine, cfg, opts, testLogger())

	return &testEnv{db: db, handler: handler, router: NewRouter(handler, metrics.New())}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestGetSimilarProperties(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	w := env.do(t, http.MethodGet, "/similar-properties?property_id=ref", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[SimilarPropertiesResponse](t, w)
	assert.Equal(t, "ref", resp.ReferenceProperty.ID)

	ids := make([]string, 0, len(resp.SimilarProperties))
	for _, p := range resp.SimilarProperties {
		ids = append(ids, p.ID)
		assert.GreaterOrEqual(t, p.SimilarityScore, 0)
	}
	// Naples matches first, then the Fort Myers condo from the widened search.
	// The sold listing is never offered as a similar property.
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 122, resp.SimilarProperties[0].SimilarityScore)
	assert.Equal(t, 118, resp.SimilarProperties[1].SimilarityScore)
	require.NotNil(t, resp.SimilarProperties[0].DistanceMiles)
	assert.Nil(t, resp.SimilarProperties[1].DistanceMiles)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestGetSimilarProperties_Limit(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	w := env.do(t, http.MethodGet, "/similar-properties?property_id=ref&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[SimilarPropertiesResponse](t, w)
	require.Len(t, resp.SimilarProperties, 1)
	assert.Equal(t, "a", resp.SimilarProperties[0].ID)
}

func TestGetSimilarProperties_Errors(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{name: "Missing property_id", target: "/similar-properties", wantStatus: http.StatusBadRequest, wantError: "property_id is required"},
		{name: "Unknown property", target: "/similar-properties?property_id=nope", wantStatus: http.StatusNotFound, wantError: "Property not found"},
		{name: "Malformed limit", target: "/similar-properties?property_id=ref&limit=abc", wantStatus: http.StatusBadRequest},
		{name: "Zero limit", target: "/similar-properties?property_id=ref&limit=0", wantStatus: http.StatusBadRequest},
		{name: "Zero priced reference", target: "/similar-properties?property_id=free", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			resp := decode[ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Error)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
		})
	}
}

func TestGetSimilarProperties_GeoJSON(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	w := env.do(t, http.MethodGet, "/similar-properties?property_id=ref&format=geojson", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "ref", fc.Features[0].ID)
	assert.Equal(t, "a", fc.Features[1].ID)
}

func TestGenerateCMA(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	w := env.do(t, http.MethodPost, "/cma/generate", map[string]any{
		"address":     "200 Gulf Shore Blvd",
		"city":        "Naples",
		"bedrooms":    3,
		"bathrooms":   2,
		"square_feet": 2000,
		"pool":        true,
		"condition":   "excellent",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[models.CMAReport](t, w)
	assert.Equal(t, models.Valuation{Low: 548625, Mid: 577500, High: 623700, Confidence: models.ConfidenceHigh}, report.Valuation)
	assert.Equal(t, models.PropertyTypeSingleFamily, report.SubjectProperty.PropertyType)
	assert.NotEmpty(t, report.MarketInsights.Disclaimer)
	assert.False(t, report.GeneratedAt.IsZero())

	require.NotEmpty(t, report.Comparables)
	assert.LessOrEqual(t, len(report.Comparables), 6)
	seen := map[string]bool{}
	for _, comp := range report.Comparables {
		assert.False(t, seen[comp.ID], "duplicate comparable %s", comp.ID)
		seen[comp.ID] = true
		require.NotNil(t, comp.AdjustedPrice)
		if sqft, ok := comp.KnownSquareFeet(); ok {
			assert.Equal(t, comp.Price+int64(2000-sqft)*100, *comp.AdjustedPrice)
		}
	}
	// Sold listings contribute to CMA evidence by default.
	assert.True(t, seen["s"])
}

func TestGenerateCMA_ActiveOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Comparables.CMAIncludeSold = false
	env := setupTestEnv(t, cfg, Options{})

	w := env.do(t, http.MethodPost, "/cma/generate", map[string]any{
		"city": "Naples", "bedrooms": 3, "square_feet": 2000, "pool": true, "condition": "excellent",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[models.CMAReport](t, w)
	for _, comp := range report.Comparables {
		assert.Equal(t, models.StatusActive, comp.Status)
	}
}

func TestGenerateCMA_Validation(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	w := env.do(t, http.MethodPost, "/cma/generate", map[string]any{
		"city": "", "bedrooms": -1, "square_feet": 0, "condition": "mint",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ErrorResponse](t, w)
	fields := map[string]string{}
	for _, d := range resp.Details {
		fields[d.Field] = d.Code
	}
	assert.Equal(t, "ERR_REQUIRED", fields["city"])
	assert.Equal(t, "ERR_GTE", fields["bedrooms"])
	assert.Equal(t, "ERR_REQUIRED", fields["square_feet"])
	assert.Equal(t, "ERR_ONEOF", fields["condition"])

	w = env.do(t, http.MethodPost, "/cma/generate", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateCMA_BedroomsRequired(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	w := env.do(t, http.MethodPost, "/cma/generate", map[string]any{"city": "Naples", "square_feet": 2000})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	resp := decode[ErrorResponse](t, w)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "bedrooms", resp.Details[0].Field)
	assert.Equal(t, "ERR_REQUIRED", resp.Details[0].Code)

	// A studio is an explicit zero, not a missing value
	w = env.do(t, http.MethodPost, "/cma/generate", map[string]any{"city": "Naples", "bedrooms": 0, "square_feet": 600})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[models.CMAReport](t, w)
	require.NotNil(t, report.SubjectProperty.Bedrooms)
	assert.Equal(t, 0, *report.SubjectProperty.Bedrooms)
}

// MockGeocoder is a mock implementation of Geocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) GeocodeAddress(ctx context.Context, addr geocoding.Address) (float64, float64, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func TestGenerateCMA_GeocodesSubject(t *testing.T) {
	geocoder := &MockGeocoder{}
	geocoder.On("GeocodeAddress", mock.Anything, geocoding.Address{Street: "200 Gulf Shore Blvd", City: "Naples"}).
		Return(26.15, -81.80, nil).Once()

	env := setupTestEnv(t, testConfig(), Options{Geocoder: geocoder})

	w := env.do(t, http.MethodPost, "/cma/generate", map[string]any{
		"address": "200 Gulf Shore Blvd", "city": "Naples", "bedrooms": 3, "square_feet": 2000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[models.CMAReport](t, w)
	require.NotNil(t, report.SubjectProperty.Latitude)
	assert.Equal(t, 26.15, *report.SubjectProperty.Latitude)
	geocoder.AssertExpectations(t)
}

func TestProperties_CreateGetList(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	body := map[string]any{
		"id": "new", "city": "Naples", "price": 480000, "bedrooms": 4, "bathrooms": 3,
		"property_type": "townhouse", "status": "pending", "photos": []string{"https://img/1.jpg"},
	}
	w := env.do(t, http.MethodPost, "/properties", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/properties", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	body["id"] = "bad"
	body["property_type"] = "castle"
	w = env.do(t, http.MethodPost, "/properties", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/properties/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Property](t, w)
	assert.Equal(t, models.PropertyTypeTownhouse, got.PropertyType)
	assert.Equal(t, []string{"https://img/1.jpg"}, got.Photos)

	w = env.do(t, http.MethodGet, "/properties/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/properties?city=naples&status=active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[[]models.Property](t, w)
	assert.Len(t, listed, 3)

	w = env.do(t, http.MethodGet, "/properties?status=gone", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportProperties(t *testing.T) {
	cfg := testConfig()
	q := queue.NewPropertyQueue(cfg.BatchProcessing.QueueSize, testLogger())

	// The processor needs the store, which the env creates, so wire it after.
	importer := &lateImporter{}
	env := setupTestEnv(t, cfg, Options{Importer: importer})
	importer.processor = processor.NewBatchProcessor(env.db, q, cfg, testLogger(), nil)
	importer.processor.Start()

	w := env.do(t, http.MethodPost, "/properties/import", []map[string]any{
		{"id": "imp-1", "city": "Tampa", "price": 300000, "bedrooms": 2, "property_type": "condo", "status": "active"},
		{"city": "Tampa", "price": 310000, "bedrooms": 2, "property_type": "condo", "status": "active"},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode[map[string]int](t, w)
	assert.Equal(t, 2, resp["accepted"])
	assert.Equal(t, 1, resp["batches"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	importer.processor.Stop(ctx)

	listed, err := env.db.ListProperties(context.Background(), models.ListFilter{City: "Tampa"})
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestImportProperties_Rejections(t *testing.T) {
	full := &stubImporter{err: queue.ErrQueueFull}
	env := setupTestEnv(t, testConfig(), Options{Importer: full})

	valid := []map[string]any{{"city": "Tampa", "price": 1, "property_type": "condo", "status": "active"}}

	w := env.do(t, http.MethodPost, "/properties/import", valid)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodPost, "/properties/import", []map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/properties/import", []map[string]any{
		{"city": "Tampa", "price": 1, "property_type": "condo", "status": "active"},
		{"city": "Tampa", "price": 1, "bathrooms": 1.25, "property_type": "condo", "status": "active"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "[1]", resp.Details[0].Field)
	assert.Equal(t, 1, full.calls)
}

type lateImporter struct {
	processor *processor.BatchProcessor
}

func (l *lateImporter) Submit(properties []*models.Property) (int, error) {
	return l.processor.Submit(properties)
}

type stubImporter struct {
	err   error
	calls int
}

func (s *stubImporter) Submit(properties []*models.Property) (int, error) {
	s.calls++
	return 0, s.err
}

func TestHealthzAndMetrics(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	w := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "homescope_http_requests_total")

	require.NoError(t, env.db.Close())
	w = env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORS(t *testing.T) {
	env := setupTestEnv(t, testConfig(), Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
