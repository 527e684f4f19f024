// Package http provides the REST surface over the feature store and the
// measurement services.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/geodraw/internal/application"
	"github.com/jobrunner/geodraw/internal/config"
	"github.com/jobrunner/geodraw/internal/ports/input"
)

// Syncer triggers library syncs and publishes the store export.
type Syncer interface {
	TriggerSync(ctx context.Context) (application.SyncResult, error)
	Publish(ctx context.Context) (string, error)
}

// Services bundles the application services the server routes to. Volume
// and Sync may be nil.
type Services struct {
	Features input.FeatureService
	Measure  input.MeasureService
	Volume   input.VolumeService
	Health   input.HealthChecker
	Sync     Syncer
}

// Server wraps the HTTP server with application handlers.
type Server struct {
	server   *http.Server
	router   *mux.Router
	features input.FeatureService
	measure  input.MeasureService
	volume   input.VolumeService
	health   input.HealthChecker
	sync     Syncer
	logger   *slog.Logger
	config   config.ServerConfig
}

// NewServer creates a new HTTP server.
func NewServer(cfg config.ServerConfig, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		features: svc.Features,
		measure:  svc.Measure,
		volume:   svc.Volume,
		health:   svc.Health,
		sync:     svc.Sync,
		logger:   logger,
		config:   cfg,
	}

	s.router = s.setupRoutes()

	// CORS wraps the router: mux skips route middleware for OPTIONS
	// requests that no route accepts.
	var handler http.Handler = s.router
	if cfg.CORS.Enabled() {
		handler = newCORSPolicy(cfg.CORS.AllowedOrigins).middleware(handler)
	}

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/features", s.handleListFeatures).Methods(http.MethodGet)
	api.HandleFunc("/features", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/features", s.handleClear).Methods(http.MethodDelete)
	api.HandleFunc("/features/{id}", s.handleGetFeature).Methods(http.MethodGet)
	api.HandleFunc("/features/{id}", s.handleUpdateFeature).Methods(http.MethodPatch)
	api.HandleFunc("/features/{id}", s.handleDeleteFeature).Methods(http.MethodDelete)
	api.HandleFunc("/features/{id}/visibility", s.handleToggleVisibility).Methods(http.MethodPost)

	api.HandleFunc("/history/undo", s.handleUndo).Methods(http.MethodPost)
	api.HandleFunc("/history/redo", s.handleRedo).Methods(http.MethodPost)

	api.HandleFunc("/measure/distance", s.handleDistance).Methods(http.MethodPost)
	api.HandleFunc("/measure/area", s.handleArea).Methods(http.MethodPost)
	if s.volume != nil {
		api.HandleFunc("/measure/volume", s.handleVolume).Methods(http.MethodPost)
	}

	if s.sync != nil {
		api.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
		api.HandleFunc("/publish", s.handlePublish).Methods(http.MethodPost)
	}

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// HTTPServer returns the underlying server so TLS can wrap it.
func (s *Server) HTTPServer() *http.Server {
	return s.server
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
