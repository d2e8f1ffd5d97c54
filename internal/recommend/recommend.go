// Package recommend turns classified items and queries into one ranked
// action list.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/derive"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Options configures impact estimation.
type Options struct {
	Actions    map[string]config.ActionEffect
	TargetACoS float64
	// Horizon is the projection length in months, used to scale current
	// (13-week) revenue when an item has no forecast.
	Horizon int
}

// OptionsFrom builds Options from a model config.
func OptionsFrom(m config.ModelConfig) Options {
	return Options{Actions: m.Actions, TargetACoS: m.QueryRules.TargetACoS, Horizon: m.Forecast.Horizon}
}

// itemMetrics are copied into an item recommendation's rationale.
var itemMetrics = []string{
	derive.MetricNetRevenue,
	derive.MetricContributionPct,
	derive.MetricRevenueGrowth,
	derive.MetricMarketShareChange,
	derive.MetricDaysOfSupply,
	derive.MetricTACoS,
}

// queryMetrics are copied into a query recommendation's rationale.
var queryMetrics = []string{
	derive.MetricSpend,
	derive.MetricSales,
	derive.MetricConversions,
	derive.MetricImpressions,
	derive.MetricACoS,
	derive.MetricROAS,
	derive.MetricROASTrend,
}

// Assemble builds one recommendation per item and query, ranked by impact
// (descending, missing last), then effort (ascending), then level and
// subject. Ranks start at 1.
func Assemble(items []model.ItemResult, queries []model.QueryResult, opts Options) []model.Recommendation {
	recs := make([]model.Recommendation, 0, len(items)+len(queries))
	for _, it := range items {
		recs = append(recs, itemRecommendation(it, opts))
	}
	for _, q := range queries {
		recs = append(recs, queryRecommendation(q, opts))
	}

	sort.SliceStable(recs, func(i, j int) bool { return less(recs[i], recs[j]) })
	for i := range recs {
		recs[i].Rank = i + 1
	}

	zap.L().Info("recommend: ranked",
		zap.Int("items", len(items)),
		zap.Int("queries", len(queries)),
		zap.Int("recommendations", len(recs)),
	)
	return recs
}

func less(a, b model.Recommendation) bool {
	av, aok := a.Impact.Float()
	bv, bok := b.Impact.Float()
	if aok != bok {
		return aok
	}
	if aok && av != bv {
		return av > bv
	}
	if ar, br := a.Effort.Rank(), b.Effort.Rank(); ar != br {
		return ar < br
	}
	if a.Level != b.Level {
		return levelRank(a.Level) < levelRank(b.Level)
	}
	if a.Subject != b.Subject {
		return a.Subject < b.Subject
	}
	return a.Action < b.Action
}

func levelRank(l model.Level) int {
	switch l {
	case model.LevelItem:
		return 0
	case model.LevelQuery:
		return 1
	}
	return 2
}

func itemRecommendation(it model.ItemResult, opts Options) model.Recommendation {
	action := string(it.Decision)
	eff := opts.Actions[action]
	return model.Recommendation{
		Level:   model.LevelItem,
		Subject: string(it.ID),
		Action:  action,
		Effort:  effort(eff),
		Impact:  ItemImpact(it, eff, opts.Horizon),
		Rationale: model.Rationale{
			Reason:  itemReason(it),
			Metrics: pick(it.Metrics, itemMetrics, it.Score),
		},
	}
}

func queryRecommendation(q model.QueryResult, opts Options) model.Recommendation {
	action := string(q.Strategy)
	eff := opts.Actions[action]
	return model.Recommendation{
		Level:   model.LevelQuery,
		Subject: q.Query,
		Action:  action,
		Effort:  effort(eff),
		Impact:  QueryImpact(q.Metrics, eff, opts.TargetACoS),
		Rationale: model.Rationale{
			Reason:  queryReason(q),
			Metrics: pick(q.Metrics, queryMetrics, q.Score),
		},
	}
}

// ItemImpact is the profit delta between acting and not acting over the
// horizon: R(1+u)(m+d) - R*m, where R is the forecast revenue total (or
// current revenue scaled to the horizon) and m the contribution margin pct.
func ItemImpact(it model.ItemResult, eff config.ActionEffect, horizon int) model.Value {
	var revenue model.Value
	if it.Forecast != nil {
		revenue = model.Of(it.Forecast.Total)
	} else {
		revenue = it.Metrics.Get(derive.MetricNetRevenue).Scale(float64(horizon) / 3)
	}
	margin := it.Metrics.Get(derive.MetricContributionPct)

	acting := revenue.Scale(1 + eff.Uplift).Mul(margin.Add(model.Of(eff.MarginDelta)))
	return roundValue(acting.Sub(revenue.Mul(margin)))
}

// QueryImpact is S*u*m - C*s: the margin on the sales change (m is the
// target ACoS) less the spend change.
func QueryImpact(m model.Metrics, eff config.ActionEffect, targetACoS float64) model.Value {
	sales := m.Get(derive.MetricSales)
	spend := m.Get(derive.MetricSpend)
	gain := sales.Scale(eff.Uplift * targetACoS)
	return roundValue(gain.Sub(spend.Scale(eff.SpendChange)))
}

// Summarize counts decisions and strategies, totals the ad spend on
// queries marked for elimination, and rolls up advertising performance.
func Summarize(items []model.ItemResult, queries []model.QueryResult, ads config.AdvertisingConfig) model.Summary {
	s := model.Summary{
		Decisions:  map[model.Decision]int{},
		Strategies: map[model.Strategy]int{},
	}
	var wasted float64
	for _, it := range items {
		s.Decisions[it.Decision]++
	}
	for _, q := range queries {
		s.Strategies[q.Strategy]++
		if q.Strategy == model.StrategyEliminate {
			wasted += q.Metrics.Get(derive.MetricSpend).Or(0)
		}
	}
	s.WastedSpend = model.Of(round2(wasted))
	s.Advertising = Advertising(queries, ads)
	return s
}

// Advertising totals every query with current-window spend and picks the
// top performers by sales and the worst by spend minus sales. It returns
// nil when no query has spend.
func Advertising(queries []model.QueryResult, cfg config.AdvertisingConfig) *model.AdvertisingSummary {
	var (
		spend, sales, orders, impressions, clicks float64
		top, worst                                []model.Performer
		n                                         int
	)
	for _, q := range queries {
		sp, ok := q.Metrics.Get(derive.MetricSpend).Float()
		if !ok {
			continue
		}
		n++
		sa := q.Metrics.Get(derive.MetricSales).Or(0)
		spend += sp
		sales += sa
		orders += q.Metrics.Get(derive.MetricConversions).Or(0)
		impressions += q.Metrics.Get(derive.MetricImpressions).Or(0)
		clicks += q.Metrics.Get("clicks").Or(0)

		p := model.Performer{
			Query:    q.Query,
			Spend:    model.Of(round2(sp)),
			Sales:    model.Of(round2(sa)),
			ACoS:     roundValue(q.Metrics.Get(derive.MetricACoS)),
			Strategy: q.Strategy,
		}
		if sa > 0 {
			top = append(top, p)
		}
		if sp >= cfg.WorstMinSpend && (sa == 0 || sp/sa > cfg.WorstACoS) {
			worst = append(worst, p)
		}
	}
	if n == 0 {
		return nil
	}

	sort.Slice(top, func(i, j int) bool {
		a, b := top[i].Sales.Or(0), top[j].Sales.Or(0)
		if a != b {
			return a > b
		}
		return top[i].Query < top[j].Query
	})
	waste := func(p model.Performer) float64 { return p.Spend.Or(0) - p.Sales.Or(0) }
	sort.Slice(worst, func(i, j int) bool {
		a, b := waste(worst[i]), waste(worst[j])
		if a != b {
			return a > b
		}
		return worst[i].Query < worst[j].Query
	})
	if len(top) > cfg.TopN {
		top = top[:cfg.TopN]
	}
	if len(worst) > cfg.TopN {
		worst = worst[:cfg.TopN]
	}

	zap.L().Debug("recommend: advertising summarized",
		zap.Int("queries", n),
		zap.Float64("spend", spend),
		zap.Int("top", len(top)),
		zap.Int("worst", len(worst)),
	)

	return &model.AdvertisingSummary{
		Queries:     n,
		Spend:       model.Of(round2(spend)),
		Sales:       model.Of(round2(sales)),
		Orders:      model.Of(orders),
		Impressions: model.Of(impressions),
		Clicks:      model.Of(clicks),
		ACoS:        rate(spend, sales),
		ROAS:        rate(sales, spend),
		CTR:         rate(clicks, impressions),
		CVR:         rate(orders, clicks),
		Top:         top,
		Worst:       worst,
	}
}

// rate is num/den to four places, missing when den is zero.
func rate(num, den float64) model.Value {
	v, ok := model.Of(num).Div(model.Of(den)).Float()
	if !ok {
		return model.Missing()
	}
	return model.Of(math.Round(v*10000) / 10000)
}

func effort(eff config.ActionEffect) model.Effort {
	if eff.Effort == "" {
		return model.EffortLow
	}
	return model.Effort(eff.Effort)
}

func pick(m model.Metrics, names []string, cs model.CompositeScore) map[string]model.Value {
	out := make(map[string]model.Value, len(names)+1)
	for _, n := range names {
		if d, ok := m[n]; ok {
			out[n] = d.Value
		}
	}
	out["score"] = model.Of(cs.Score)
	return out
}

func itemReason(it model.ItemResult) string {
	reason := fmt.Sprintf("%s: %s with adjusted score %.2f", it.Decision, it.Quadrant, it.Score.Adjusted)
	if it.Score.LowConfidence {
		reason += " (low confidence, imputed factors)"
	}
	return reason
}

func queryReason(q model.QueryResult) string {
	switch q.Strategy {
	case model.StrategyDefend:
		return "defend: branded query ranking organically with low ACoS"
	case model.StrategyAttack:
		return "attack: high-volume non-branded query at profitable ACoS"
	case model.StrategyHarvest:
		return "harvest: high spend with declining ROAS"
	case model.StrategyTest:
		return "test: not enough impressions to judge"
	case model.StrategyEliminate:
		return "eliminate: high spend with no conversions"
	}
	return "unclassified: no rule matched"
}

func roundValue(v model.Value) model.Value {
	f, ok := v.Float()
	if !ok {
		return v
	}
	return model.Of(round2(f))
}

func round2(x float64) float64 {
	r := math.Round(x*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
