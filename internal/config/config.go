// Package config provides configuration management using Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/geodraw/internal/domain"
	"github.com/jobrunner/geodraw/internal/geodesy"
	"github.com/jobrunner/geodraw/internal/snap"
)

// Snap tolerance bounds in pixels.
const (
	MinSnapTolerance = 5.0
	MaxSnapTolerance = 20.0
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Snap     SnapConfig     `mapstructure:"snap"`
	Draw     DrawConfig     `mapstructure:"draw"`
	Geodesy  GeodesyConfig  `mapstructure:"geodesy"`
	Terrain  TerrainConfig  `mapstructure:"terrain"`
	History  HistoryConfig  `mapstructure:"history"`
	TLS      TLSConfig      `mapstructure:"tls"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type       string      `mapstructure:"type"` // s3, azure, http, local, none
	LocalPath  string      `mapstructure:"local_path"`
	PublishKey string      `mapstructure:"publish_key"`
	S3         S3Config    `mapstructure:"s3"`
	Azure      AzureConfig `mapstructure:"azure"`
	HTTP       HTTPConfig  `mapstructure:"http"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Prefix           string `mapstructure:"prefix"`
}

// HTTPConfig holds HTTP download configuration.
type HTTPConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	IndexFile string        `mapstructure:"index_file"` // default: index.txt
	Timeout   time.Duration `mapstructure:"timeout"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
}

// DatabaseConfig holds the SQLite snapshot store configuration.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WatcherConfig holds the directory watcher configuration.
type WatcherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Paths        []string      `mapstructure:"paths"`
	Debounce     time.Duration `mapstructure:"debounce"`
	ScanExisting bool          `mapstructure:"scan_existing"`
}

// SyncConfig holds the storage sync schedule.
type SyncConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// SnapConfig holds snapping configuration.
type SnapConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Tolerance float64 `mapstructure:"tolerance"` // pixels, clamped to [5,20]
	Vertex    bool    `mapstructure:"vertex"`
	Edge      bool    `mapstructure:"edge"`
}

// DrawConfig holds interactive drawing defaults.
type DrawConfig struct {
	Style        domain.StylePatch `mapstructure:"style"`
	MoveInterval time.Duration     `mapstructure:"move_interval"`
}

// GeodesyConfig selects the reference ellipsoid and volume mesh.
type GeodesyConfig struct {
	Ellipsoid string                `mapstructure:"ellipsoid"`
	Volume    geodesy.VolumeOptions `mapstructure:"volume"`
}

// TerrainConfig selects the terrain sampler.
type TerrainConfig struct {
	Type     string  `mapstructure:"type"` // none, flat, grid
	Height   float64 `mapstructure:"height"`
	GridPath string  `mapstructure:"grid_path"`
}

// HistoryConfig holds the undo history configuration.
type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// TLSConfig holds TLS/CertMagic configuration.
type TLSConfig struct {
	Enabled  bool      `mapstructure:"enabled"`
	Domains  []string  `mapstructure:"domains"`
	Email    string    `mapstructure:"email"`
	CacheDir string    `mapstructure:"cache_dir"`
	Staging  bool      `mapstructure:"staging"` // Use Let's Encrypt staging
	DNS      DNSConfig `mapstructure:"dns"`
}

// DNSConfig holds the Azure DNS zone used for DNS-01 challenges.
type DNSConfig struct {
	SubscriptionID    string `mapstructure:"subscription_id"`
	ResourceGroupName string `mapstructure:"resource_group"`
	ClientID          string `mapstructure:"client_id"` // managed identity, optional
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values.
func Defaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_body_bytes", 10<<20)
	viper.SetDefault("server.cors.allowed_origins", []string{})

	// Storage defaults
	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.local_path", "./data")
	viper.SetDefault("storage.publish_key", "geodraw-export.geojson")
	viper.SetDefault("storage.http.index_file", "index.txt")
	viper.SetDefault("storage.http.timeout", 5*time.Minute)

	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "./data/geodraw.db")

	viper.SetDefault("watcher.enabled", false)
	viper.SetDefault("watcher.paths", []string{})
	viper.SetDefault("watcher.debounce", 500*time.Millisecond)
	viper.SetDefault("watcher.scan_existing", true)

	viper.SetDefault("sync.enabled", false)
	viper.SetDefault("sync.interval", 5*time.Minute)

	// Snap defaults
	viper.SetDefault("snap.enabled", true)
	viper.SetDefault("snap.tolerance", 10.0)
	viper.SetDefault("snap.vertex", true)
	viper.SetDefault("snap.edge", true)

	viper.SetDefault("draw.move_interval", 16*time.Millisecond)

	viper.SetDefault("geodesy.ellipsoid", "WGS84")
	viper.SetDefault("geodesy.volume.granularity", geodesy.DefaultGranularity)
	viper.SetDefault("geodesy.volume.max_triangles", geodesy.DefaultMaxTriangles)

	viper.SetDefault("terrain.type", "none")

	viper.SetDefault("history.max_entries", 50)

	// TLS defaults
	viper.SetDefault("tls.enabled", false)
	viper.SetDefault("tls.cache_dir", "./.certmagic")
	viper.SetDefault("tls.staging", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// Load loads configuration from environment and config file.
func Load(configPath string) (*Config, error) {
	Defaults()

	// Environment variable binding
	viper.SetEnvPrefix("GEODRAW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/geodraw")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Snap.Tolerance = ClampTolerance(cfg.Snap.Tolerance)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// ClampTolerance limits a snap tolerance to [MinSnapTolerance, MaxSnapTolerance].
func ClampTolerance(px float64) float64 {
	switch {
	case px < MinSnapTolerance:
		return MinSnapTolerance
	case px > MaxSnapTolerance:
		return MaxSnapTolerance
	}
	return px
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}

	if c.TLS.Enabled {
		if len(c.TLS.Domains) == 0 {
			return fmt.Errorf("TLS enabled but no domains specified")
		}
		if c.TLS.Email == "" {
			return fmt.Errorf("TLS enabled but no email specified")
		}
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	switch c.Terrain.Type {
	case "none", "", "flat":
	case "grid":
		if c.Terrain.GridPath == "" {
			return fmt.Errorf("terrain grid path is required")
		}
	default:
		return fmt.Errorf("unknown terrain type: %s", c.Terrain.Type)
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Watcher.Enabled && len(c.Watcher.Paths) == 0 {
		return fmt.Errorf("watcher enabled but no paths specified")
	}
	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return fmt.Errorf("invalid sync interval: %s", c.Sync.Interval)
	}
	if c.History.MaxEntries < 1 {
		return fmt.Errorf("invalid history size: %d", c.History.MaxEntries)
	}

	if _, err := geodesy.NewEllipsoid(c.Geodesy.Ellipsoid); err != nil {
		return err
	}
	if c.Draw.Style.IsEmpty() {
		return nil
	}
	return domain.DefaultStyle().Merge(c.Draw.Style).Validate()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Type {
	case "none", "":
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("S3 region is required")
		}
	case "azure":
		if c.Storage.Azure.Container == "" {
			return fmt.Errorf("azure container is required")
		}
		if c.Storage.Azure.AccountName == "" && c.Storage.Azure.ConnectionString == "" {
			return fmt.Errorf("azure account name or connection string is required")
		}
	case "http":
		if c.Storage.HTTP.BaseURL == "" {
			return fmt.Errorf("HTTP base URL is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Options converts the snap section into snap service options.
func (c *SnapConfig) Options() snap.Options {
	return snap.Options{
		Enabled:      c.Enabled,
		Tolerance:    ClampTolerance(c.Tolerance),
		SnapToVertex: c.Vertex,
		SnapToEdge:   c.Edge,
	}
}
