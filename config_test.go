package ignite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Trend.SmoothingAlpha != 0.3 {
		t.Errorf("expected smoothing alpha 0.3, got %v", cfg.Trend.SmoothingAlpha)
	}
	if cfg.Plateau.PlateauThreshold != 0.6 {
		t.Errorf("expected plateau threshold 0.6, got %v", cfg.Plateau.PlateauThreshold)
	}
	if cfg.Projection.Steps != 4 || cfg.Projection.IntervalDays != 7 {
		t.Errorf("unexpected projection defaults: %+v", cfg.Projection)
	}
	if cfg.Classifier.Clusters != 3 {
		t.Errorf("expected 3 clusters, got %d", cfg.Classifier.Clusters)
	}
	if cfg.Correlation.PValueMethod != PValueSimpson {
		t.Errorf("expected simpson p-value method, got %q", cfg.Correlation.PValueMethod)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.ReportRetention != 90*24*time.Hour {
		t.Error("default ReportRetention should be 90 days")
	}
	if cfg.HTTP.MaxBodyBytes != 10<<20 {
		t.Error("default MaxBodyBytes should be 10MB")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha zero", func(c *Config) { c.Trend.SmoothingAlpha = 0 }},
		{"alpha above one", func(c *Config) { c.Trend.SmoothingAlpha = 1.5 }},
		{"zero window", func(c *Config) { c.Features.Windows = []int{7, 0} }},
		{"unknown p-value method", func(c *Config) { c.Correlation.PValueMethod = "bootstrap" }},
		{"recent fraction", func(c *Config) { c.Plateau.RecentFraction = 1 }},
		{"negative steps", func(c *Config) { c.Projection.Steps = -1 }},
		{"negative clusters", func(c *Config) { c.Classifier.Clusters = -2 }},
		{"negative concurrency", func(c *Config) { c.Batch.Concurrency = -1 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignite.yaml")
	yaml := `
trend:
  smoothing_alpha: 0.5
plateau:
  min_span_days: 21
classifier:
  clusters: 4
  seed: 7
storage:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/ignite"
  report_retention: 720h
http:
  addr: ":9000"
  remote_write_enabled: true
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Trend.SmoothingAlpha != 0.5 {
		t.Errorf("expected alpha 0.5, got %v", cfg.Trend.SmoothingAlpha)
	}
	// Unset keys keep their defaults.
	if cfg.Trend.StableThreshold != DefaultTrendConfig().StableThreshold {
		t.Errorf("expected default stable threshold, got %v", cfg.Trend.StableThreshold)
	}
	if cfg.Plateau.MinSpanDays != 21 || cfg.Plateau.FlatCV != 0.05 {
		t.Errorf("unexpected plateau config: %+v", cfg.Plateau)
	}
	if cfg.Classifier.Clusters != 4 || cfg.Classifier.Seed != 7 {
		t.Errorf("unexpected classifier config: %+v", cfg.Classifier)
	}
	if cfg.Storage.Driver != "mysql" || cfg.Storage.ReportRetention != 30*24*time.Hour {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.HTTP.Addr != ":9000" || !cfg.HTTP.RemoteWriteEnabled {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("trend: [1, 2"), 0o644)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	_ = os.WriteFile(invalid, []byte("trend:\n  smoothing_alpha: 2\n"), 0o644)
	if _, err := LoadConfig(invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Encryption = &EncryptionConfig{Enabled: true, Key: []byte("secret"), KeyPassword: "pw"}

	data, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	_ = os.WriteFile(path, data, 0o644)

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Plateau != cfg.Plateau {
		t.Errorf("plateau config changed: %+v", loaded.Plateau)
	}
	if len(loaded.Storage.Encryption.Key) != 0 {
		t.Error("raw key must not be serialized")
	}
	if loaded.Storage.Encryption.KeyPassword != "pw" {
		t.Error("expected key password to round trip")
	}
}
