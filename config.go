package ignite

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the full engine and service configuration.
type Config struct {
	// Trend configures trend summaries.
	Trend TrendConfig `yaml:"trend"`

	// Features configures the feature extractor.
	Features FeatureConfig `yaml:"features"`

	// Correlation configures the significance test.
	Correlation CorrelationConfig `yaml:"correlation"`

	// Plateau configures the stagnation detector.
	Plateau PlateauConfig `yaml:"plateau"`

	// Projection configures forward extrapolation.
	Projection ProjectionConfig `yaml:"projection"`

	// Classifier configures clustering and supervised models.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Batch configures concurrent analysis of many series.
	Batch BatchConfig `yaml:"batch"`

	// Storage configures measurement and report persistence.
	Storage StorageConfig `yaml:"storage"`

	// HTTP configures the HTTP API server.
	HTTP HTTPConfig `yaml:"http"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
}

// BatchConfig groups batch analysis settings.
type BatchConfig struct {
	// Concurrency is the maximum number of series analysed at once.
	// Default: 4.
	Concurrency int `yaml:"concurrency"`
}

// StorageConfig groups persistence settings.
type StorageConfig struct {
	// Driver is the database/sql driver: "sqlite" or "mysql".
	// Default: sqlite.
	Driver string `yaml:"driver"`

	// DSN is the driver-specific data source name.
	// Default: ignite.db.
	DSN string `yaml:"dsn"`

	// ReportDir is the directory for the file report backend.
	// Empty keeps reports in memory.
	ReportDir string `yaml:"report_dir"`

	// S3 archives reports to S3 instead of ReportDir when set.
	S3 *S3BackendConfig `yaml:"s3"`

	// Encryption encrypts archived reports at rest.
	Encryption *EncryptionConfig `yaml:"encryption"`

	// ReportRetention is how long report index rows are kept.
	// Default: 90 days.
	ReportRetention time.Duration `yaml:"report_retention"`
}

// HTTPConfig groups HTTP server settings.
type HTTPConfig struct {
	// Addr is the listen address.
	// Default: ":8086".
	Addr string `yaml:"addr"`

	// ReadTimeout bounds request reads.
	// Default: 10 seconds.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds response writes.
	// Default: 30 seconds.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxBodyBytes limits request bodies.
	// Default: 10MB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RemoteWriteEnabled enables the Prometheus remote write endpoint.
	RemoteWriteEnabled bool `yaml:"remote_write_enabled"`

	// Stream configures the websocket report stream.
	Stream StreamConfig `yaml:"stream"`
}

// LogConfig groups logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Trend:       DefaultTrendConfig(),
		Features:    DefaultFeatureConfig(),
		Correlation: DefaultCorrelationConfig(),
		Plateau:     DefaultPlateauConfig(),
		Projection:  DefaultProjectionConfig(),
		Classifier:  DefaultClassifierConfig(),
		Batch: BatchConfig{
			Concurrency: 4,
		},
		Storage: StorageConfig{
			Driver:          "sqlite",
			DSN:             "ignite.db",
			ReportRetention: 90 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Addr:         ":8086",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxBodyBytes: 10 << 20,
			Stream:       DefaultStreamConfig(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	if a := c.Trend.SmoothingAlpha; a <= 0 || a > 1 {
		return errOutOfRange("trend.smoothing_alpha", "smoothing factor must be in (0, 1]")
	}
	for _, w := range c.Features.Windows {
		if w <= 0 {
			return errOutOfRange("features.windows", "window sizes must be positive")
		}
	}
	switch c.Correlation.PValueMethod {
	case "", PValueSimpson, PValueExact:
	default:
		return errOutOfRange("correlation.p_value_method", fmt.Sprintf("unknown method %q", c.Correlation.PValueMethod))
	}
	if c.Plateau.RecentFraction < 0 || c.Plateau.RecentFraction >= 1 {
		return errOutOfRange("plateau.recent_fraction", "must be in [0, 1)")
	}
	if c.Projection.IntervalDays < 0 || c.Projection.Steps < 0 {
		return errOutOfRange("projection", "steps and interval_days must not be negative")
	}
	if c.Classifier.Clusters < 0 || c.Classifier.MaxIterations < 0 || c.Classifier.Trees < 0 {
		return errOutOfRange("classifier", "counts must not be negative")
	}
	if c.Batch.Concurrency < 0 {
		return errOutOfRange("batch.concurrency", "must not be negative")
	}
	switch c.Storage.Driver {
	case "", "sqlite", "mysql":
	default:
		return errOutOfRange("storage.driver", fmt.Sprintf("unsupported driver %q", c.Storage.Driver))
	}
	return nil
}
