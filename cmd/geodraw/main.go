// Package main provides the entry point for the geodraw service and tools.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobrunner/geodraw/internal/app"
	"github.com/jobrunner/geodraw/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "geodraw",
	Short: "geodraw - geodesic drawing and measurement service",
	Long: `geodraw keeps a store of geodesic shapes drawn on the WGS84 ellipsoid.

It serves a REST API for the shapes and for distance, area and cut volume
measurements, and ships command line tools for the same computations.

Features:
  - Points, lines, polygons, circles and rectangles with undo/redo
  - Geodesic distance and ellipsoidal surface area
  - Cut volume over a terrain grid
  - Vertex and edge snapping
  - GeoJSON import and export, SQLite persistence
  - Document libraries in local, AWS S3, Azure or HTTP storage
  - TLS with automatic certificate management
  - Prometheus metrics`,
	RunE: runServer,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST service (the default command)",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("geodraw %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().String("ellipsoid", "WGS84", "reference ellipsoid")
	rootCmd.PersistentFlags().String("db", "./data/geodraw.db", "SQLite database path")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("geodesy.ellipsoid", rootCmd.PersistentFlags().Lookup("ellipsoid"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	addServerFlags(rootCmd)
	addServerFlags(serveCmd)

	rootCmd.AddCommand(serveCmd, versionCmd, measureCmd, volumeCmd, replayCmd, importCmd, exportCmd)
}

// serverFlagKeys maps the server flags to their config keys.
var serverFlagKeys = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"tls":          "tls.enabled",
	"tls-domains":  "tls.domains",
	"tls-email":    "tls.email",
	"storage-type": "storage.type",
	"storage-path": "storage.local_path",
	"watch":        "watcher.paths",
	"cors":         "server.cors.allowed_origins",
}

func addServerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("host", "0.0.0.0", "server host")
	f.Int("port", 8080, "server port")
	f.Bool("tls", false, "enable TLS")
	f.StringSlice("tls-domains", nil, "TLS domains")
	f.String("tls-email", "", "TLS email for Let's Encrypt")
	f.String("storage-type", "none", "storage type (none, local, s3, azure, http)")
	f.String("storage-path", "./data", "local storage path")
	f.StringSlice("watch", nil, "directories to watch for GeoJSON files")
	f.StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")
}

// bindServerFlags binds the flags of the command that is actually running,
// so root and serve do not overwrite each other's bindings.
func bindServerFlags(cmd *cobra.Command) {
	for flag, key := range serverFlagKeys {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	bindServerFlags(cmd)
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Watcher.Paths) > 0 {
		cfg.Watcher.Enabled = true
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting geodraw",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"storage_type", cfg.Storage.Type,
		"ellipsoid", cfg.Geodesy.Ellipsoid,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address())
		if err := application.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down server")
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(time.Now().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
