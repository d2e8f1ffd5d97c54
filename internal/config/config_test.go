package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "adsellix.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 120, cfg.Pipeline.TimeoutSecs)
	assert.InDelta(t, 0.20, cfg.Pipeline.MaxDropRate, 0.001)
	assert.Equal(t, 3, cfg.Pipeline.ForecastHorizon)
	assert.False(t, cfg.Insight.Enabled)
	assert.Equal(t, 10, cfg.Insight.MaxRecommendations)
	assert.Equal(t, 50, cfg.Insight.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Insight.MaxAttempts)
	assert.Equal(t, 5, cfg.Insight.BreakerFailures)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(600), cfg.Anthropic.MaxTokens)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/audit
log:
  level: debug
  format: console
pipeline:
  workers: 2
  model_path: model.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/audit", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, "model.yaml", cfg.Pipeline.ModelPath)
	// Defaults still apply for unset values
	assert.Equal(t, 120, cfg.Pipeline.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0644))
	t.Setenv("ADSELLIX_LOG_LEVEL", "warn")
	t.Setenv("ADSELLIX_PIPELINE_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Pipeline.Workers)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.yml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  workers: 4\n  max_drop_rate: 0\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Zero(t, cfg.Pipeline.MaxDropRate)
	assert.Equal(t, "sqlite", cfg.Store.Driver)

	_, err = LoadFrom(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}

func validDefaults() *Config {
	return &Config{
		Store:     StoreConfig{Driver: "sqlite", DatabaseURL: "adsellix.db"},
		Anthropic: AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 600},
		Insight:   InsightConfig{MaxRecommendations: 10, RequestsPerMinute: 50},
		Pipeline:  PipelineConfig{Workers: 8, TimeoutSecs: 120, MaxDropRate: 0.2, ForecastHorizon: 3},
		Server:    ServerConfig{Port: 8080},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "audit ok", mode: "audit"},
		{name: "serve ok", mode: "serve"},
		{name: "store ok", mode: "store"},
		{
			name:    "unknown mode",
			mode:    "crawl",
			wantErr: "unknown validation mode",
		},
		{
			name:    "bad port",
			mode:    "serve",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "bad driver",
			mode:    "store",
			mutate:  func(c *Config) { c.Store.Driver = "mysql" },
			wantErr: "store.driver",
		},
		{
			name:    "zero workers",
			mode:    "audit",
			mutate:  func(c *Config) { c.Pipeline.Workers = 0 },
			wantErr: "pipeline.workers",
		},
		{
			name:    "drop rate above one",
			mode:    "audit",
			mutate:  func(c *Config) { c.Pipeline.MaxDropRate = 1.5 },
			wantErr: "pipeline.max_drop_rate",
		},
		{
			name:    "insight without key",
			mode:    "audit",
			mutate:  func(c *Config) { c.Insight.Enabled = true },
			wantErr: "anthropic.key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
