// Package config loads application settings, the scoring model and the
// per-identifier manual inputs.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Insight    InsightConfig    `yaml:"insight" mapstructure:"insight"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// AnthropicConfig holds Anthropic API settings for the insight summarizer.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// InsightConfig controls prose generation for recommendations.
type InsightConfig struct {
	Enabled            bool `yaml:"enabled" mapstructure:"enabled"`
	MaxRecommendations int  `yaml:"max_recommendations" mapstructure:"max_recommendations"`
	RequestsPerMinute  int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxAttempts        int  `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerFailures    int  `yaml:"breaker_failures" mapstructure:"breaker_failures"`
}

// PipelineConfig configures an audit run.
type PipelineConfig struct {
	Workers         int     `yaml:"workers" mapstructure:"workers"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxDropRate     float64 `yaml:"max_drop_rate" mapstructure:"max_drop_rate"`
	ForecastHorizon int     `yaml:"forecast_horizon" mapstructure:"forecast_horizon"`
	ModelPath       string  `yaml:"model_path" mapstructure:"model_path"`
	ManualPath      string  `yaml:"manual_path" mapstructure:"manual_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures the background run-health checker.
type MonitoringConfig struct {
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (when present) and the
// environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from the named file and the environment. An
// empty path searches the working directory for an optional config.yaml;
// an explicit path must exist.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ADSELLIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "adsellix.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.check_interval_secs", 60)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("pipeline.timeout_secs", 120)
	v.SetDefault("pipeline.max_drop_rate", 0.20)
	v.SetDefault("pipeline.forecast_horizon", 3)
	v.SetDefault("insight.enabled", false)
	v.SetDefault("insight.max_recommendations", 10)
	v.SetDefault("insight.requests_per_minute", 50)
	v.SetDefault("insight.max_attempts", 3)
	v.SetDefault("insight.breaker_failures", 5)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 600)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "audit":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
		}
	case "store":
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 256 {
		errs = append(errs, fmt.Sprintf("pipeline.workers must be between 1 and 256 (got %d)", c.Pipeline.Workers))
	}
	if c.Pipeline.TimeoutSecs < 1 {
		errs = append(errs, "pipeline.timeout_secs must be >= 1")
	}
	if c.Pipeline.MaxDropRate < 0 || c.Pipeline.MaxDropRate > 1 {
		errs = append(errs, "pipeline.max_drop_rate must be between 0 and 1")
	}
	if c.Pipeline.ForecastHorizon < 1 {
		errs = append(errs, "pipeline.forecast_horizon must be >= 1")
	}
	if c.Insight.Enabled && c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required when insight.enabled is true")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
