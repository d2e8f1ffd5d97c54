package forecast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// linear builds n months of revenue starting January 2023, base + step*i.
func linear(n int, base, step float64) []model.MonthPoint {
	out := make([]model.MonthPoint, n)
	for i := 0; i < n; i++ {
		out[i] = model.MonthPoint{
			Month:   fmt.Sprintf("%04d-%02d", 2023+i/12, i%12+1),
			Revenue: model.Of(base + step*float64(i)),
		}
	}
	return out
}

func TestProject_LinearTrend(t *testing.T) {
	fc := config.DefaultModel().Forecast
	f, ok := Project(linear(24, 1000, 10), nil, fc)
	require.True(t, ok)

	assert.Equal(t, MetricRevenue, f.Metric)
	assert.InDelta(t, 10, f.Slope, 1e-9)
	require.Len(t, f.Points, 3)
	assert.Equal(t, "2025-01", f.Points[0].Month)
	assert.InDelta(t, 1240, f.Points[0].Value, 1e-9)
	assert.InDelta(t, 1250, f.Points[1].Value, 1e-9)
	assert.Equal(t, "2025-03", f.Points[2].Month)
	assert.InDelta(t, 1260, f.Points[2].Value, 1e-9)
	assert.InDelta(t, 3750, f.Total, 1e-9)
	assert.Equal(t, 24, f.HistoryMonths)
	assert.Equal(t, model.ConfidenceHigh, f.Confidence)
}

func TestProject_Confidence(t *testing.T) {
	fc := config.DefaultModel().Forecast
	tests := []struct {
		name   string
		months int
		want   model.Confidence
	}{
		{"two years", 24, model.ConfidenceHigh},
		{"eighteen months", 18, model.ConfidenceMedium},
		{"one year", 12, model.ConfidenceMedium},
		{"six months", 6, model.ConfidenceLow},
		{"three months", 3, model.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := Project(linear(tt.months, 500, 5), nil, fc)
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Confidence)
		})
	}
}

func TestProject_NoisyHistoryIsNotHigh(t *testing.T) {
	h := linear(24, 1000, 0)
	for i := range h {
		if i%2 == 0 {
			h[i].Revenue = model.Of(200)
		} else {
			h[i].Revenue = model.Of(1800)
		}
	}
	f, ok := Project(h, nil, config.DefaultModel().Forecast)
	require.True(t, ok)
	assert.Equal(t, model.ConfidenceMedium, f.Confidence)
}

func TestProject_InsufficientHistory(t *testing.T) {
	fc := config.DefaultModel().Forecast
	_, ok := Project(linear(2, 100, 1), nil, fc)
	assert.False(t, ok)
	_, ok = Project(nil, nil, fc)
	assert.False(t, ok)

	// Missing months do not count as points.
	h := linear(5, 100, 1)
	h[1].Revenue = model.Missing()
	h[2].Revenue = model.Missing()
	h[3].Revenue = model.Missing()
	_, ok = Project(h, nil, fc)
	assert.False(t, ok)
}

func TestProject_SeasonalityApplied(t *testing.T) {
	fc := config.DefaultModel().Forecast
	season := &model.Seasonality{Months: 24}
	for i := range season.Index {
		season.Index[i] = model.Of(1)
	}
	season.Index[0] = model.Of(2) // January doubles

	h := linear(24, 1000, 0)
	for i := range h {
		if i%12 == 0 {
			h[i].Revenue = model.Of(2000)
		}
	}
	f, ok := Project(h, season, fc)
	require.True(t, ok)
	assert.InDelta(t, 0, f.Slope, 1e-9)
	assert.InDelta(t, 2000, f.Points[0].Value, 1e-6)
	assert.InDelta(t, 1000, f.Points[1].Value, 1e-6)
	assert.InDelta(t, 1000, f.Points[2].Value, 1e-6)
}

func TestProject_NeverNegative(t *testing.T) {
	f, ok := Project(linear(12, 1100, -100), nil, config.DefaultModel().Forecast)
	require.True(t, ok)
	for _, p := range f.Points {
		assert.GreaterOrEqual(t, p.Value, 0.0)
	}
	assert.InDelta(t, 0, f.Total, 1e-9)
}
