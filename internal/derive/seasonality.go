package derive

import (
	"time"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Seasonality computes a per-calendar-month index from monthly revenue:
// month_sales / mean(monthly sales over the trailing window). Where the
// window holds the same calendar month more than once the ratios are
// averaged. Fewer than MinSeasonalityMonths months marks the index low
// confidence. It returns nil when there is no usable history.
func Seasonality(history []model.MonthPoint, fc config.ForecastConfig) *model.Seasonality {
	pts := Trailing(history, fc.SeasonalityMonths)
	if len(pts) == 0 {
		return nil
	}

	var total float64
	for _, p := range pts {
		total += p.value
	}
	mean := total / float64(len(pts))
	if mean <= 0 {
		return nil
	}

	var sums [12]float64
	var counts [12]int
	for _, p := range pts {
		m := p.month.Month() - 1
		sums[m] += p.value / mean
		counts[m]++
	}

	s := &model.Seasonality{
		Months:        len(pts),
		LowConfidence: len(pts) < fc.MinSeasonalityMonths,
	}
	for i := range s.Index {
		if counts[i] > 0 {
			s.Index[i] = model.Of(sums[i] / float64(counts[i]))
		}
	}
	return s
}

// MonthValue is one present month of a history series.
type MonthValue struct {
	month time.Time
	value float64
}

// Month returns the first day of the month.
func (m MonthValue) Month() time.Time { return m.month }

// Value returns the month's revenue.
func (m MonthValue) Value() float64 { return m.value }

// Trailing returns the present revenue points within the n calendar months
// ending at the series' last month, oldest first. Missing months are
// skipped.
func Trailing(history []model.MonthPoint, n int) []MonthValue {
	if len(history) == 0 || n <= 0 {
		return nil
	}
	last, err := time.Parse("2006-01", history[len(history)-1].Month)
	if err != nil {
		return nil
	}
	cutoff := last.AddDate(0, -(n - 1), 0)

	var out []MonthValue
	for _, p := range history {
		t, err := time.Parse("2006-01", p.Month)
		if err != nil || t.Before(cutoff) {
			continue
		}
		v, ok := p.Revenue.Float()
		if !ok {
			continue
		}
		out = append(out, MonthValue{month: t, value: v})
	}
	return out
}
