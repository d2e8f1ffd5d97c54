// Package forecast projects monthly revenue from a trailing trend adjusted
// by a seasonality index.
package forecast

import (
	"math"
	"time"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/derive"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// MetricRevenue is the projected metric name.
const MetricRevenue = "revenue"

// Project fits a least-squares line through the deseasonalized trailing
// months and projects fc.Horizon months past the last one, re-applying the
// seasonality index of each target month. It returns false when fewer than
// fc.MinPoints months are available.
func Project(history []model.MonthPoint, season *model.Seasonality, fc config.ForecastConfig) (*model.Forecast, bool) {
	pts := derive.Trailing(history, fc.TrendMonths)
	if len(pts) < fc.MinPoints || len(pts) < 2 {
		return nil, false
	}

	origin := pts[0].Month()
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = float64(monthsBetween(origin, p.Month()))
		ys[i] = p.Value() / index(season, p.Month())
	}

	slope, intercept := leastSquares(xs, ys)
	last := pts[len(pts)-1].Month()
	lastX := xs[len(xs)-1]

	f := &model.Forecast{
		Metric:        MetricRevenue,
		Slope:         round(slope, 6),
		HistoryMonths: presentMonths(history),
		Points:        make([]model.ForecastPoint, 0, fc.Horizon),
	}
	for h := 1; h <= fc.Horizon; h++ {
		month := last.AddDate(0, h, 0)
		v := (intercept + slope*(lastX+float64(h))) * index(season, month)
		v = round(math.Max(0, v), 2)
		f.Points = append(f.Points, model.ForecastPoint{Month: month.Format("2006-01"), Value: v})
		f.Total += v
	}
	f.Total = round(f.Total, 2)
	f.Confidence = confidence(f.HistoryMonths, residualCV(xs, ys, slope, intercept), fc)
	return f, true
}

func confidence(months int, cv float64, fc config.ForecastConfig) model.Confidence {
	switch {
	case months >= fc.HighMonths && cv <= fc.MaxResidualCV:
		return model.ConfidenceHigh
	case months >= fc.MediumMonths:
		return model.ConfidenceMedium
	}
	return model.ConfidenceLow
}

// index returns the month's seasonality index, 1 when unknown or unusable.
func index(s *model.Seasonality, month time.Time) float64 {
	if s == nil {
		return 1
	}
	if v := s.Index[month.Month()-1]; v.Positive() {
		x, _ := v.Float()
		return x
	}
	return 1
}

func leastSquares(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, sy / n
	}
	slope = (n*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / n
	return slope, intercept
}

// residualCV is the root-mean-square residual over the mean observation.
func residualCV(xs, ys []float64, slope, intercept float64) float64 {
	var ss, sum float64
	for i := range xs {
		r := ys[i] - (intercept + slope*xs[i])
		ss += r * r
		sum += ys[i]
	}
	mean := sum / float64(len(ys))
	if mean <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt(ss/float64(len(ys))) / mean
}

func presentMonths(history []model.MonthPoint) int {
	n := 0
	for _, p := range history {
		if !p.Revenue.IsMissing() {
			n++
		}
	}
	return n
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
