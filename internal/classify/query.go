package classify

import (
	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/derive"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// rule reports whether a query matches. A missing input never matches.
type rule func(m model.Metrics, r config.QueryRules) bool

var rules = map[model.Strategy]rule{
	model.StrategyDefend:    defend,
	model.StrategyAttack:    attack,
	model.StrategyHarvest:   harvest,
	model.StrategyTest:      insufficient,
	model.StrategyEliminate: eliminate,
}

// Query runs the rule list in the configured order and returns the first
// match, or Unclassified when nothing matches.
func Query(m model.Metrics, r config.QueryRules) model.Strategy {
	for _, name := range r.Order {
		s := model.Strategy(name)
		if fn, ok := rules[s]; ok && fn(m, r) {
			return s
		}
	}
	return model.StrategyUnclassified
}

func defend(m model.Metrics, r config.QueryRules) bool {
	return is(m, derive.MetricBranded, func(b float64) bool { return b > 0 }) &&
		is(m, derive.MetricOrganicRank, func(rank float64) bool { return rank >= 1 && rank <= r.TopRank }) &&
		is(m, derive.MetricACoS, func(a float64) bool { return a <= r.LowACoS }) &&
		!zeroConversions(m)
}

func attack(m model.Metrics, r config.QueryRules) bool {
	volume := m.Get(derive.MetricSearchVolume)
	if volume.IsMissing() {
		volume = m.Get(derive.MetricImpressions)
	}
	v, ok := volume.Float()
	return ok && v >= r.HighVolume &&
		is(m, derive.MetricBranded, func(b float64) bool { return b == 0 }) &&
		is(m, derive.MetricACoS, func(a float64) bool { return a <= r.TargetACoS }) &&
		!zeroConversions(m)
}

func harvest(m model.Metrics, r config.QueryRules) bool {
	return is(m, derive.MetricSpend, func(s float64) bool { return s >= r.HighSpend }) &&
		is(m, derive.MetricConversions, func(c float64) bool { return c > 0 }) &&
		is(m, derive.MetricROASTrend, func(t float64) bool { return t < r.DecliningROAS })
}

func insufficient(m model.Metrics, r config.QueryRules) bool {
	return is(m, derive.MetricImpressions, func(i float64) bool { return i < r.MinImpressions }) &&
		is(m, derive.MetricSpend, func(s float64) bool { return s < r.HighSpend })
}

func eliminate(m model.Metrics, r config.QueryRules) bool {
	return is(m, derive.MetricSpend, func(s float64) bool { return s >= r.HighSpend }) &&
		zeroConversions(m)
}

func zeroConversions(m model.Metrics) bool {
	return is(m, derive.MetricConversions, func(c float64) bool { return c == 0 })
}

func is(m model.Metrics, name string, pred func(float64) bool) bool {
	v, ok := m.Get(name).Float()
	return ok && pred(v)
}
