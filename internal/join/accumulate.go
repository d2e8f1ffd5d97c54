package join

import "github.com/Fraztahir/adsellix-audit/internal/model"

// accumulator folds duplicate values of one field under its aggregation
// rule. Missing inputs are skipped; the result is missing when nothing
// present was seen.
type accumulator struct {
	agg   model.Agg
	n     int
	sum   float64
	min   float64
	max   float64
	first float64
}

func (a *accumulator) add(v model.Value) {
	f, ok := v.Float()
	if !ok {
		return
	}
	if a.n == 0 {
		a.min, a.max, a.first = f, f, f
	}
	if f < a.min {
		a.min = f
	}
	if f > a.max {
		a.max = f
	}
	a.sum += f
	a.n++
}

func (a *accumulator) value() model.Value {
	if a.n == 0 {
		return model.Missing()
	}
	switch a.agg {
	case model.AggMax:
		return model.Of(a.max)
	case model.AggMin:
		return model.Of(a.min)
	case model.AggMean:
		return model.Of(a.sum / float64(a.n))
	case model.AggFirst:
		return model.Of(a.first)
	}
	return model.Of(a.sum)
}
