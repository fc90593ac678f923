// Package config provides configuration loading and validation for revdiff.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/revdiff/pkg/align"
	"github.com/Sumatoshi-tech/revdiff/pkg/classify"
	"github.com/Sumatoshi-tech/revdiff/pkg/unified"
)

// Sentinel validation errors.
var (
	ErrInvalidContextLines = errors.New("diff context lines must not be negative")
	ErrInvalidWorkers      = errors.New("batch workers must not be negative")
	ErrInvalidLimit        = errors.New("alignment limits must not be negative")
	ErrInvalidLogLevel     = errors.New("unknown log level")
	ErrInvalidSizeFormat   = errors.New("invalid size format")
)

// Default configuration values.
const (
	defaultMaxInputSize = "16MB"
	defaultLogLevel     = "info"
	envPrefix           = "REVDIFF"
	configName          = "revdiff"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds all configuration for revdiff.
type Config struct {
	Diff      DiffConfig      `mapstructure:"diff"`
	Limits    align.Limits    `mapstructure:"limits"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DiffConfig holds per-comparison defaults.
type DiffConfig struct {
	MaxInputSize   string `mapstructure:"max_input_size"`
	Threshold      int    `mapstructure:"threshold"`
	ContextLines   int    `mapstructure:"context_lines"`
	IncludeUnified bool   `mapstructure:"include_unified"`
}

// BatchConfig holds batch scheduler configuration.
type BatchConfig struct {
	// Workers is the pool size; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry and Prometheus settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// MaxInputBytes parses Diff.MaxInputSize. Empty means no limit (0).
func (c *Config) MaxInputBytes() (uint64, error) {
	size := strings.TrimSpace(c.Diff.MaxInputSize)
	if size == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, fmt.Errorf("%w for max_input_size: %s", ErrInvalidSizeFormat, size)
	}

	return n, nil
}

// LoadConfig loads configuration from defaults, an optional file and
// REVDIFF_* environment variables, in increasing priority.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("$HOME/.config/revdiff")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Diff: DiffConfig{
			MaxInputSize: defaultMaxInputSize,
			Threshold:    classify.DefaultThreshold,
			ContextLines: unified.DefaultContext,
		},
		Limits:  align.DefaultLimits(),
		Logging: LoggingConfig{Level: defaultLogLevel},
	}
}

// setDefaults sets default configuration values. Every key is registered
// so that AutomaticEnv can override it.
func setDefaults(viperCfg *viper.Viper) {
	def := Default()

	viperCfg.SetDefault("diff.threshold", def.Diff.Threshold)
	viperCfg.SetDefault("diff.context_lines", def.Diff.ContextLines)
	viperCfg.SetDefault("diff.include_unified", def.Diff.IncludeUnified)
	viperCfg.SetDefault("diff.max_input_size", def.Diff.MaxInputSize)

	viperCfg.SetDefault("limits.max_tokens", def.Limits.MaxTokens)
	viperCfg.SetDefault("limits.max_trace_cells", def.Limits.MaxTraceCells)
	viperCfg.SetDefault("limits.max_table_cells", def.Limits.MaxTableCells)

	viperCfg.SetDefault("batch.workers", def.Batch.Workers)

	viperCfg.SetDefault("logging.level", def.Logging.Level)
	viperCfg.SetDefault("logging.json", def.Logging.JSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Diff.ContextLines < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidContextLines, config.Diff.ContextLines)
	}

	if config.Batch.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Batch.Workers)
	}

	l := config.Limits
	if l.MaxTokens < 0 || l.MaxTraceCells < 0 || l.MaxTableCells < 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidLimit, l)
	}

	level := strings.ToLower(config.Logging.Level)
	if !validLevel(level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	config.Logging.Level = level

	_, err := config.MaxInputBytes()
	if err != nil {
		return err
	}

	return nil
}

func validLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}

	return false
}
