// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"

	httpAdapter "github.com/jobrunner/geodraw/internal/adapters/http"
	"github.com/jobrunner/geodraw/internal/adapters/metrics"
	"github.com/jobrunner/geodraw/internal/adapters/scene"
	"github.com/jobrunner/geodraw/internal/adapters/sqlite"
	"github.com/jobrunner/geodraw/internal/adapters/storage"
	"github.com/jobrunner/geodraw/internal/adapters/terrain"
	tlsAdapter "github.com/jobrunner/geodraw/internal/adapters/tls"
	"github.com/jobrunner/geodraw/internal/adapters/watcher"
	"github.com/jobrunner/geodraw/internal/application"
	"github.com/jobrunner/geodraw/internal/config"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/ports/output"
	"github.com/jobrunner/geodraw/internal/snap"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Ellipsoid     *geodesy.Ellipsoid
	Terrain       output.TerrainSampler
	Scene         *scene.Headless
	Snap          *snap.Service
	Repository    output.FeatureRepository
	Store         *application.FeatureStore
	Storage       output.ObjectStorage
	Library       *application.Library
	LibrarySync   *application.LibrarySync
	HealthService *application.HealthService
	HTTPServer    *httpAdapter.Server
	TLSServer     *tlsAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector
	MetricsServer *metrics.Server
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("geodraw")
		metricsCollector = app.Metrics
		if cfg.Metrics.Port > 0 {
			app.MetricsServer = metrics.NewServer(app.Metrics, cfg.Metrics.Port, cfg.Metrics.Path, logger)
		}
	}

	ellipsoid, err := geodesy.NewEllipsoid(cfg.Geodesy.Ellipsoid)
	if err != nil {
		return nil, fmt.Errorf("initializing ellipsoid: %w", err)
	}
	app.Ellipsoid = ellipsoid

	sampler, err := NewTerrain(cfg.Terrain)
	if err != nil {
		return nil, fmt.Errorf("initializing terrain: %w", err)
	}
	app.Terrain = sampler

	app.Scene = scene.New(scene.Camera{}, ellipsoid, sampler, logger)
	app.Snap = snap.NewService(app.Scene, metricsCollector, cfg.Snap.Options())

	if cfg.Database.Enabled {
		repo, err := sqlite.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		app.Repository = repo
	}

	app.Store = application.NewFeatureStore(application.StoreOptions{
		Scene:        app.Scene,
		Repository:   app.Repository,
		Snap:         app.Snap,
		Metrics:      metricsCollector,
		Logger:       logger,
		Ellipsoid:    ellipsoid,
		HistoryLimit: cfg.History.MaxEntries,
	})

	objectStorage, err := NewStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = objectStorage

	app.Library = application.NewLibrary(app.Store, app.Storage, metricsCollector, logger, cfg.Storage.PublishKey)
	if app.Storage != nil {
		app.LibrarySync = application.NewLibrarySync(app.Library, cfg.Sync.Interval, logger)
	}

	app.HealthService = application.NewHealthService(app.Store, app.Repository, app.Terrain)

	services := httpAdapter.Services{
		Features: app.Store,
		Measure:  application.NewMeasureService(ellipsoid, logger),
		Health:   app.HealthService,
	}
	if app.Terrain != nil {
		services.Volume = application.NewVolumeService(ellipsoid, app.Terrain, cfg.Geodesy.Volume, metricsCollector, logger)
	}
	if app.LibrarySync != nil {
		services.Sync = app.LibrarySync
	}
	app.HTTPServer = httpAdapter.NewServer(cfg.Server, services, logger)

	if app.Metrics != nil {
		router := app.HTTPServer.Router()
		router.Use(app.Metrics.Middleware)
		if app.MetricsServer == nil {
			router.Handle(cfg.Metrics.Path, app.Metrics.Handler())
		}
	}

	tlsServer, err := tlsAdapter.NewServer(cfg.TLS, app.HTTPServer.HTTPServer(), logger)
	if err != nil {
		return nil, fmt.Errorf("initializing TLS: %w", err)
	}
	app.TLSServer = tlsServer

	if cfg.Watcher.Enabled {
		w, err := watcher.New(
			watcher.Config{
				Paths:        cfg.Watcher.Paths,
				Debounce:     cfg.Watcher.Debounce,
				ScanExisting: cfg.Watcher.ScanExisting,
			},
			watcher.ImportHandler(app.Library, logger),
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start loads the saved features, starts the background components and
// blocks serving HTTP until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Store.Load(ctx); err != nil {
		a.Logger.Warn("failed to load features", "error", err)
	}

	if a.LibrarySync != nil && a.Config.Sync.Enabled {
		a.LibrarySync.Start(ctx)
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if a.MetricsServer != nil {
		go func() {
			if err := a.MetricsServer.Start(); err != nil {
				a.Logger.Error("metrics server error", "error", err)
			}
		}()
	}

	return a.TLSServer.ListenAndServe()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		if err := a.Watcher.Stop(); err != nil {
			a.Logger.Warn("failed to stop file watcher", "error", err)
		}
	}

	if a.LibrarySync != nil {
		a.LibrarySync.Stop()
	}

	if a.MetricsServer != nil {
		if err := a.MetricsServer.Shutdown(ctx); err != nil {
			a.Logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if err := a.TLSServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	if a.Repository != nil {
		if err := a.Repository.Close(); err != nil {
			a.Logger.Error("failed to close database", "error", err)
			return err
		}
	}

	return nil
}

// NewTerrain builds the configured terrain sampler. It returns a nil
// sampler for type "none".
func NewTerrain(cfg config.TerrainConfig) (output.TerrainSampler, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "flat":
		return terrain.Flat{Height: cfg.Height}, nil
	case "grid":
		return terrain.LoadGrid(cfg.GridPath)
	default:
		return nil, fmt.Errorf("unknown terrain type: %s", cfg.Type)
	}
}

// NewStorage initializes the configured object storage backend. It returns
// nil for type "none".
func NewStorage(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil

	case "local":
		return storage.NewLocalStorage(cfg.LocalPath), nil

	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case "http":
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
