package derive

import (
	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Query metric names read by the query classifier.
const (
	MetricSpend        = "spend"
	MetricSales        = "sales"
	MetricConversions  = "conversions"
	MetricImpressions  = "impressions"
	MetricACoS         = "acos"
	MetricROAS         = "roas"
	MetricROASTrend    = "roas_trend"
	MetricSearchVolume = "search_volume"
	MetricOrganicRank  = "organic_rank"
	MetricBranded      = "branded"
)

// QueryDerivations returns the query-level derivation list.
func QueryDerivations(m config.ModelConfig) []Derivation {
	target := m.QueryRules.TargetACoS
	return []Derivation{
		{Name: "impression_share", Requires: []string{model.FieldOwnImpressions, model.FieldMarketImpressions},
			Fn: ratio(model.FieldOwnImpressions, model.FieldMarketImpressions)},
		{Name: "click_share", Requires: []string{model.FieldOwnClicks, model.FieldMarketClicks},
			Fn: ratio(model.FieldOwnClicks, model.FieldMarketClicks)},
		{Name: MetricPurchaseShare, Requires: []string{model.FieldOwnPurchases, model.FieldMarketPurchases},
			Fn: ratio(model.FieldOwnPurchases, model.FieldMarketPurchases)},
		{Name: "conversion_gap", Requires: []string{"click_share", MetricPurchaseShare},
			Fn:    func(g Getter) model.Value { return g("click_share").Sub(g(MetricPurchaseShare)) },
			Flags: gapFlags},

		{Name: MetricSpend, Requires: []string{model.FieldAdSpend}, Fn: pass(model.FieldAdSpend)},
		{Name: MetricSales, Requires: []string{model.FieldAdSales}, Fn: pass(model.FieldAdSales)},
		{Name: MetricConversions, Requires: []string{model.FieldAdOrders}, Fn: pass(model.FieldAdOrders)},
		{Name: "clicks", Requires: []string{model.FieldAdClicks}, Fn: pass(model.FieldAdClicks)},
		{Name: MetricImpressions, Optional: []string{model.FieldAdImpressions, model.FieldOwnImpressions},
			Fn: func(g Getter) model.Value { return first(g(model.FieldAdImpressions), g(model.FieldOwnImpressions)) }},

		{Name: MetricACoS, Requires: []string{MetricSpend, MetricSales}, Fn: ratio(MetricSpend, MetricSales)},
		{Name: MetricROAS, Requires: []string{MetricSales, MetricSpend}, Fn: ratio(MetricSales, MetricSpend)},
		{Name: "cvr", Requires: []string{MetricConversions, "clicks"}, Fn: ratio(MetricConversions, "clicks")},
		{Name: "cpc", Requires: []string{MetricSpend, "clicks"}, Fn: ratio(MetricSpend, "clicks")},
		{Name: "ctr", Requires: []string{"clicks", MetricImpressions}, Fn: ratio("clicks", MetricImpressions)},
		{Name: "acos_ratio", Requires: []string{MetricACoS},
			Fn: func(g Getter) model.Value { return g(MetricACoS).Scale(1 / target) }},

		{Name: "prior_roas", Requires: []string{"prior." + model.FieldAdSales, "prior." + model.FieldAdSpend},
			Fn: ratio("prior."+model.FieldAdSales, "prior."+model.FieldAdSpend)},
		{Name: MetricROASTrend, Requires: []string{MetricROAS, "prior_roas"}, Fn: change(MetricROAS, "prior_roas")},

		{Name: MetricSearchVolume, Requires: []string{model.FieldSearchVolume}, Fn: pass(model.FieldSearchVolume)},
		{Name: MetricOrganicRank, Requires: []string{model.FieldOrganicRank}, Fn: pass(model.FieldOrganicRank)},
		{Name: MetricBranded, Requires: []string{"manual.branded"}, Fn: pass("manual.branded")},
	}
}
