// Package metrics exposes Prometheus instrumentation for the HTTP layer,
// the comparables engine and the import pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements the engine and processor metrics interfaces.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	searches      *prometheus.CounterVec
	returned      *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	importBatches *prometheus.CounterVec
	importRows    *prometheus.CounterVec
}

// New creates a recorder on its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homescope_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "homescope_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homescope_comparable_searches_total",
				Help: "Completed comparable searches by kind",
			},
			[]string{"kind"},
		),
		returned: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "homescope_comparables_returned",
				Help:    "Number of comparables returned per search",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"kind"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homescope_fallback_expansions_total",
				Help: "Fallback expansions by outcome",
			},
			[]string{"outcome"},
		),
		importBatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homescope_import_batches_total",
				Help: "Processed import batches by outcome",
			},
			[]string{"outcome"},
		),
		importRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homescope_import_properties_total",
				Help: "Properties in processed import batches by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordSearch records a completed comparable search.
func (r *Recorder) RecordSearch(kind string, candidates int) {
	r.searches.WithLabelValues(kind).Inc()
	r.returned.WithLabelValues(kind).Observe(float64(candidates))
}

// RecordFallback records a fallback expansion outcome.
func (r *Recorder) RecordFallback(outcome string) {
	r.fallbacks.WithLabelValues(outcome).Inc()
}

// RecordImportBatch records an import batch outcome.
func (r *Recorder) RecordImportBatch(outcome string, size int) {
	r.importBatches.WithLabelValues(outcome).Inc()
	r.importRows.WithLabelValues(outcome).Add(float64(size))
}

// Middleware records request counts and latency labelled by route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		r.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
