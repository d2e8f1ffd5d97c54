// Package scorer applies weighted, banded factor models to derived metrics.
// Scoring is a pure function of its inputs: the same metrics and model
// always produce the same composite.
package scorer

import (
	"math"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Band maps a value onto 1-5. Thresholds are checked in order and the first
// one the value reaches wins (inclusive lower bound); values below every
// threshold get the factor's floor.
func Band(f config.Factor, v float64) int {
	for _, t := range f.Bands {
		if v >= t.Min {
			return t.Band
		}
	}
	return f.Floor
}

// TrendMultiplier buckets a trend value: below Down, between, above Up.
// A missing trend, or a model without one, is neutral.
func TrendMultiplier(t *config.Trend, v model.Value) float64 {
	if t == nil {
		return 1
	}
	f, ok := v.Float()
	if !ok {
		return t.FlatMultiplier
	}
	switch {
	case f < t.Down:
		return t.DownMultiplier
	case f > t.Up:
		return t.UpMultiplier
	}
	return t.FlatMultiplier
}

// Score computes a composite. Raw is the weighted band sum on the 1-5
// scale, Adjusted applies the trend multiplier (capped at 5), and Score
// maps Adjusted onto 0-100. A factor whose metric is missing takes the
// fallback band, is flagged imputed, and marks the composite low
// confidence.
func Score(sm config.ScoringModel, metrics model.Metrics) model.CompositeScore {
	cs := model.CompositeScore{
		Model:     sm.Name,
		SubScores: make([]model.SubScore, 0, len(sm.Factors)),
	}

	var raw float64
	for _, f := range sm.Factors {
		v := metrics.Get(f.Metric)
		sub := model.SubScore{Factor: f.Name, Metric: f.Metric, Weight: f.Weight, Value: v}
		if x, ok := v.Float(); ok {
			sub.Band = Band(f, x)
		} else {
			sub.Band = sm.FallbackBand
			sub.Imputed = true
			cs.LowConfidence = true
		}
		raw += float64(sub.Band) * f.Weight
		cs.SubScores = append(cs.SubScores, sub)
	}

	var trend model.Value
	if sm.Trend != nil {
		trend = metrics.Get(sm.Trend.Metric)
	}
	cs.TrendMultiplier = TrendMultiplier(sm.Trend, trend)
	cs.Raw = round(raw, 6)
	cs.Adjusted = round(math.Min(5, raw*cs.TrendMultiplier), 6)
	cs.Score = round(cs.Adjusted/5*100, 2)
	return cs
}

// Grade returns the first grade whose minimum the score reaches.
func Grade(score float64, grades []config.Grade) string {
	for _, g := range grades {
		if score >= g.Min {
			return g.Label
		}
	}
	if len(grades) > 0 {
		return grades[len(grades)-1].Label
	}
	return ""
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
