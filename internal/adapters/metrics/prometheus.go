// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobrunner/geodraw/internal/ports/output"
)

var _ output.MetricsCollector = (*Collector)(nil)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	registry            *prometheus.Registry
	shapesCreated       *prometheus.CounterVec
	toolOutcomes        *prometheus.CounterVec
	snapHits            *prometheus.CounterVec
	volumeDuration      prometheus.Histogram
	volumeTriangles     prometheus.Histogram
	featureCount        prometheus.Gauge
	imported            *prometheus.CounterVec
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry, which also
// carries the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "geodraw"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		shapesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shapes_created_total",
				Help:      "Total number of shapes created",
			},
			[]string{"kind"},
		),

		toolOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_outcomes_total",
				Help:      "Tool constructions by outcome",
			},
			[]string{"tool", "outcome"},
		),

		snapHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snap_hits_total",
				Help:      "Snap targets found",
			},
			[]string{"type"},
		),

		volumeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "volume_duration_seconds",
				Help:      "Cut volume computation time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		volumeTriangles: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "volume_triangles",
				Help:      "Mesh triangles per cut volume computation",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
			},
		),

		featureCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "features",
				Help:      "Number of features in the store",
			},
		),

		imported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imported_features_total",
				Help:      "GeoJSON features imported",
			},
			[]string{"status"},
		),

		storageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncShapesCreated implements output.MetricsCollector.
func (c *Collector) IncShapesCreated(kind string) {
	c.shapesCreated.WithLabelValues(kind).Inc()
}

// IncToolOutcome implements output.MetricsCollector.
func (c *Collector) IncToolOutcome(tool, outcome string) {
	c.toolOutcomes.WithLabelValues(tool, outcome).Inc()
}

// IncSnapHits implements output.MetricsCollector.
func (c *Collector) IncSnapHits(targetType string) {
	c.snapHits.WithLabelValues(targetType).Inc()
}

// ObserveVolumeDuration implements output.MetricsCollector.
func (c *Collector) ObserveVolumeDuration(duration time.Duration, triangles int) {
	c.volumeDuration.Observe(duration.Seconds())
	c.volumeTriangles.Observe(float64(triangles))
}

// SetFeatureCount implements output.MetricsCollector.
func (c *Collector) SetFeatureCount(count int) {
	c.featureCount.Set(float64(count))
}

// IncImported implements output.MetricsCollector.
func (c *Collector) IncImported(success bool, n int) {
	if n <= 0 {
		return
	}
	c.imported.WithLabelValues(successLabel(success)).Add(float64(n))
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, successLabel(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the Prometheus HTTP handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware returns mux middleware recording request counts and durations
// labelled by route template.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := routeTemplate(r)
		c.httpRequestsTotal.WithLabelValues(r.Method, path, statusToString(wrapped.statusCode)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// routeTemplate returns the matched mux template, keeping feature IDs out
// of the label set.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

func successLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// Server exposes the collector on its own port.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a metrics server listening on port at path.
func NewServer(c *Collector, port int, path string, logger *slog.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}
	r := mux.NewRouter()
	r.Handle(path, c.Handler()).Methods(http.MethodGet)
	return &Server{
		server: &http.Server{
			Addr:              ":" + strconv.Itoa(port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting metrics server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
