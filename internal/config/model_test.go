package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultModelIsValid(t *testing.T) {
	m := DefaultModel()
	require.NoError(t, ValidateModel(m))
	assert.InDelta(t, 1.0, m.KeepKill.WeightSum(), weightEpsilon)
	assert.InDelta(t, 1.0, m.BrandHealth.WeightSum(), weightEpsilon)
	assert.InDelta(t, 1.0, m.QueryEfficiency.WeightSum(), weightEpsilon)
}

func TestValidateModel_WeightSum(t *testing.T) {
	m := DefaultModel()
	m.KeepKill.Factors[0].Weight = 0.22 // sum 0.97

	err := ValidateModel(m)
	require.Error(t, err)

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "keep_kill: weights sum to 0.9700")
}

func TestValidateModel_Problems(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ModelConfig)
		wantErr string
	}{
		{
			name:    "missing floor is a gap",
			mutate:  func(m *ModelConfig) { m.KeepKill.Factors[1].Floor = 0 },
			wantErr: "keep_kill.growth: banding table has a gap",
		},
		{
			name: "thresholds out of order",
			mutate: func(m *ModelConfig) {
				m.BrandHealth.Factors[0].Bands = []Threshold{{0.1, 4}, {0.2, 5}}
			},
			wantErr: "thresholds must strictly descend",
		},
		{
			name:    "band out of range",
			mutate:  func(m *ModelConfig) { m.QueryEfficiency.Factors[1].Bands[0].Band = 6 },
			wantErr: "band 6 outside 1-5",
		},
		{
			name:    "decision thresholds not descending",
			mutate:  func(m *ModelConfig) { m.Decision.Maintain = 4.5 },
			wantErr: "decision thresholds must descend",
		},
		{
			name:    "unknown quadrant factor",
			mutate:  func(m *ModelConfig) { m.Quadrant.GrowthFactor = "velocity" },
			wantErr: `quadrant growth factor "velocity"`,
		},
		{
			name:    "rule missing from order",
			mutate:  func(m *ModelConfig) { m.QueryRules.Order = []string{"defend", "attack", "harvest", "test"} },
			wantErr: `"eliminate" exactly once`,
		},
		{
			name: "unknown rule",
			mutate: func(m *ModelConfig) {
				m.QueryRules.Order = append(m.QueryRules.Order, "pause")
			},
			wantErr: `unknown rule "pause"`,
		},
		{
			name:    "grades out of order",
			mutate:  func(m *ModelConfig) { m.Grades[2].Min = 95 },
			wantErr: "must have a lower minimum",
		},
		{
			name:    "zero horizon",
			mutate:  func(m *ModelConfig) { m.Forecast.Horizon = 0 },
			wantErr: "forecast.horizon",
		},
		{
			name: "bad effort",
			mutate: func(m *ModelConfig) {
				m.Actions["invest"] = ActionEffect{Uplift: 0.2, Effort: "huge"}
			},
			wantErr: `action "invest" has invalid effort "huge"`,
		},
		{
			name:    "no heroes",
			mutate:  func(m *ModelConfig) { m.Hierarchy.HeroCount = 0 },
			wantErr: "hierarchy.hero_count",
		},
		{
			name:    "empty performer lists",
			mutate:  func(m *ModelConfig) { m.Advertising.TopN = 0 },
			wantErr: "advertising must have top_n >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultModel()
			tt.mutate(&m)
			err := ValidateModel(m)
			require.Error(t, err)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadModel_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	doc := `
decision:
  invest: 4.2
  maintain: 3.0
  optimize: 2.0
query_rules:
  order: [eliminate, defend, attack, harvest, test]
  top_rank: 5
  low_acos: 0.1
  target_acos: 0.25
  high_volume: 1000
  high_spend: 50
  min_impressions: 500
  declining_roas: -0.2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.InDelta(t, 4.2, m.Decision.Invest, 1e-9)
	assert.Equal(t, "eliminate", m.QueryRules.Order[0])
	assert.InDelta(t, 0.25, m.QueryRules.TargetACoS, 1e-9)
	// Untouched sections keep their defaults.
	assert.Len(t, m.KeepKill.Factors, 7)
}

func TestLoadModel_InvalidOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	doc := `
keep_kill:
  name: keep_kill
  fallback_band: 3
  factors:
    - name: margin
      metric: contribution_margin_pct
      weight: 0.5
      floor: 1
      bands: [{min: 0.3, band: 5}]
    - name: growth
      metric: revenue_yoy_growth
      weight: 0.47
      floor: 1
      bands: [{min: 0.2, band: 5}]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := LoadModel(path)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "weights sum to 0.9700")
}

func TestLoadModel_EmptyPath(t *testing.T) {
	m, err := LoadModel("")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel().Decision, m.Decision)
}

func TestMarshalModel_RoundTrip(t *testing.T) {
	out, err := MarshalModel(DefaultModel())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, out, 0644))
	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel().KeepKill, m.KeepKill)
}

func TestManualInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.yaml")
	doc := `
brand_terms: [Acme, "acme pro"]
items:
  B000TEST01:
    cogs: 4.5
    target_margin: 0.3
    strategic_fit: core
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, err := LoadManualInputs(path)
	require.NoError(t, err)

	item := m.Item("B000TEST01")
	require.NotNil(t, item.COGS)
	assert.InDelta(t, 4.5, *item.COGS, 1e-9)
	assert.Nil(t, item.LandedCost)
	assert.Equal(t, "core", item.StrategicFit)
	assert.Equal(t, ItemInputs{}, m.Item("B000OTHER"))

	assert.True(t, m.IsBranded("acme water bottle"))
	assert.False(t, m.IsBranded("water bottle"))

	var nilInputs *ManualInputs
	assert.False(t, nilInputs.IsBranded("acme"))
}

func TestLoadManualInputs_Missing(t *testing.T) {
	_, err := LoadManualInputs(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	m, err := LoadManualInputs("")
	require.NoError(t, err)
	assert.Empty(t, m.Items)
}

func TestParseModel(t *testing.T) {
	m, err := ParseModel(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel().QueryRules, m.QueryRules)

	_, err = ParseModel([]byte("decision: [not, a, map]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse model")

	_, err = ParseModel([]byte("decision: {invest: 2, maintain: 3, optimize: 4}"))
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
}

func TestParseManualInputs(t *testing.T) {
	m, err := ParseManualInputs([]byte("brand_terms: [acme]"))
	require.NoError(t, err)
	assert.NotNil(t, m.Items)
	assert.True(t, m.IsBranded("ACME bottle"))

	_, err = ParseManualInputs([]byte("items: [1, 2]"))
	assert.Error(t, err)
}
