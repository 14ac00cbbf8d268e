// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tathienbao/quant-ta/internal/api"
	"github.com/tathienbao/quant-ta/internal/metrics"
	"github.com/tathienbao/quant-ta/internal/observer"
	"github.com/tathienbao/quant-ta/internal/types"
	"github.com/tathienbao/quant-ta/pkg/indicator"
	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration.
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Indicators  IndicatorsConfig  `yaml:"indicators"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Server      ServerConfig      `yaml:"server"`
	Shutdown    ShutdownConfig    `yaml:"shutdown"`
	Log         LogConfig         `yaml:"log"`
}

// DataConfig holds the default bar source.
type DataConfig struct {
	CSVPath string `yaml:"csv_path"`
	Symbol  string `yaml:"symbol"`
}

// IndicatorsConfig holds indicator selection and parameters.
type IndicatorsConfig struct {
	Enabled []string `yaml:"enabled"` // empty means all
	Period  int      `yaml:"period"`
	Alpha   float64  `yaml:"alpha"`
}

// PersistenceConfig holds result store settings.
type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// ServerConfig holds compute API settings.
type ServerConfig struct {
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	Burst              int     `yaml:"burst"`
	MaxBars            int     `yaml:"max_bars"`
}

// ShutdownConfig holds shutdown settings.
type ShutdownConfig struct {
	TimeoutSec int `yaml:"timeout_sec"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Load loads configuration from a YAML file. A .env file next to the
// config file, if present, is loaded into the environment first so the
// YAML can reference its variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// MaxBarsLimit bounds server.max_bars so the derived request body limit
// stays well inside int64.
const MaxBarsLimit = 10_000_000

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var cfg Config
	_ = cfg.Validate()
	return &cfg
}

// Validate applies defaults and validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Indicators
	if c.Indicators.Period == 0 {
		c.Indicators.Period = indicator.DefaultPeriod
	}
	if c.Indicators.Period < 1 {
		errs = append(errs, "indicators.period must be positive")
	}
	if c.Indicators.Alpha == 0 {
		c.Indicators.Alpha = indicator.DefaultAlpha
	}
	if c.Indicators.Alpha < 0 || c.Indicators.Alpha > 1 {
		errs = append(errs, "indicators.alpha must be between 0 and 1")
	}
	for _, name := range c.Indicators.Enabled {
		if _, err := indicator.ParseKind(name); err != nil {
			errs = append(errs, fmt.Sprintf("indicators.enabled: '%s' is not supported", name))
		}
	}

	// Data
	if c.Data.CSVPath != "" && c.Data.Symbol == "" {
		errs = append(errs, "data.symbol is required when data.csv_path is set")
	}

	// Persistence
	if c.Persistence.Enabled && c.Persistence.Path == "" {
		errs = append(errs, "persistence.path is required when persistence is enabled")
	}

	// Metrics
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	// Server
	if c.Server.RateLimitPerSecond == 0 {
		c.Server.RateLimitPerSecond = 10
	}
	if c.Server.RateLimitPerSecond < 0 {
		errs = append(errs, "server.rate_limit_per_second must be positive")
	}
	if c.Server.Burst <= 0 {
		c.Server.Burst = int(c.Server.RateLimitPerSecond)
		if c.Server.Burst < 1 {
			c.Server.Burst = 1
		}
	}
	if c.Server.MaxBars <= 0 {
		c.Server.MaxBars = 100_000
	}
	if c.Server.MaxBars > MaxBarsLimit {
		errs = append(errs, fmt.Sprintf("server.max_bars must be at most %d", MaxBarsLimit))
	}

	// Shutdown
	if c.Shutdown.TimeoutSec <= 0 {
		c.Shutdown.TimeoutSec = 10
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// Kinds returns the enabled indicators, all of them when none are listed.
func (c *Config) Kinds() []indicator.Kind {
	if len(c.Indicators.Enabled) == 0 {
		return indicator.Kinds()
	}
	kinds := make([]indicator.Kind, 0, len(c.Indicators.Enabled))
	for _, name := range c.Indicators.Enabled {
		if k, err := indicator.ParseKind(name); err == nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Params returns the indicator parameters.
func (c *Config) Params() indicator.Params {
	return indicator.Params{Period: c.Indicators.Period, Alpha: c.Indicators.Alpha}
}

// ToCalculatorConfig converts to observer.CalculatorConfig.
func (c *Config) ToCalculatorConfig() observer.CalculatorConfig {
	return observer.CalculatorConfig{
		Indicators: c.Kinds(),
		Params:     c.Params(),
	}
}

// ToServerConfig converts to metrics.ServerConfig.
func (c *Config) ToServerConfig() metrics.ServerConfig {
	cfg := metrics.DefaultServerConfig()
	cfg.Port = c.Metrics.Port
	cfg.MetricsEnabled = c.Metrics.Enabled
	cfg.MetricsPath = c.Metrics.Path
	return cfg
}

// ToAPIConfig converts to api.Config.
func (c *Config) ToAPIConfig() api.Config {
	return api.Config{
		RateLimitPerSecond: c.Server.RateLimitPerSecond,
		Burst:              c.Server.Burst,
		MaxBars:            c.Server.MaxBars,
		Defaults:           c.Params(),
	}
}

// ShutdownTimeout returns the shutdown timeout duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Shutdown.TimeoutSec) * time.Second
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level '%s' is not supported", s)
	}
	return level, nil
}
