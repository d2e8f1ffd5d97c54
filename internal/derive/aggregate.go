package derive

import (
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Aggregates are run-level reductions (market denominators, category
// averages). They are computed once before per-identifier work starts and
// never modified afterwards.
type Aggregates struct {
	values map[string]model.Value
}

// Get returns a named aggregate, missing when unknown.
func (a *Aggregates) Get(name string) model.Value {
	if a == nil {
		return model.Missing()
	}
	v, ok := a.values[name]
	if !ok {
		return model.Missing()
	}
	return v
}

// Values returns a copy of every aggregate.
func (a *Aggregates) Values() map[string]model.Value {
	out := make(map[string]model.Value, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// sum adds the present values; missing when none are present.
type sum struct {
	v model.Value
}

func (s *sum) add(v model.Value) {
	if v.IsMissing() {
		return
	}
	if s.v.IsMissing() {
		s.v = v
		return
	}
	s.v = s.v.Add(v)
}

// Reduce computes the aggregates of the current window. Query rows supply
// market totals and ad spend since every search term row carries them once.
func Reduce(t *model.FactTable) *Aggregates {
	var revenue, units, sessions, cvUnits, cvSessions sum
	for i := range t.Items {
		r := &t.Items[i]
		if r.Window != model.WindowCurrent {
			continue
		}
		revenue.add(r.Get(model.FieldOrderedRevenue))
		units.add(r.Get(model.FieldUnitsOrdered))
		sessions.add(r.Get(model.FieldSessions))
		u, s := r.Get(model.FieldUnitsOrdered), r.Get(model.FieldSessions)
		if !u.IsMissing() && !s.IsMissing() {
			cvUnits.add(u)
			cvSessions.add(s)
		}
	}

	var spend, sales, own, market sum
	for i := range t.Queries {
		r := &t.Queries[i]
		if r.Window != model.WindowCurrent {
			continue
		}
		spend.add(r.Get(model.FieldAdSpend))
		sales.add(r.Get(model.FieldAdSales))
		p, m := r.Get(model.FieldOwnPurchases), r.Get(model.FieldMarketPurchases)
		if !p.IsMissing() && !m.IsMissing() {
			own.add(p)
			market.add(m)
		}
	}

	return &Aggregates{values: map[string]model.Value{
		MetricNetRevenue:         revenue.v,
		"units":                  units.v,
		"sessions":               sessions.v,
		MetricConversionRate:     cvUnits.v.Div(cvSessions.v),
		"ad_spend":               spend.v,
		"ad_sales":               sales.v,
		"own_purchases":          own.v,
		"total_market_purchases": market.v,
	}}
}

// WithItems returns a copy extended with roll-ups of per-identifier
// metrics, for the portfolio stage.
func (a *Aggregates) WithItems(items []model.Metrics) *Aggregates {
	out := &Aggregates{values: a.Values()}
	var healthy, cm sum
	n := 0
	for _, m := range items {
		if h := m.Get(MetricHealthyInventory); !h.IsMissing() {
			healthy.add(h)
			n++
		}
		cm.add(m.Get(MetricContributionMargin))
	}
	if n > 0 {
		out.values[MetricHealthyInventoryPct] = healthy.v.Scale(1 / float64(n))
	}
	out.values[MetricContributionMargin] = cm.v
	return out
}

// PortfolioDerivations returns the brand-level derivation list, evaluated
// over aggregates only.
func PortfolioDerivations() []Derivation {
	return []Derivation{
		{Name: MetricNetRevenue, Requires: []string{"agg.net_revenue"}, Fn: pass("agg.net_revenue")},
		{Name: "ad_spend", Requires: []string{"agg.ad_spend"}, Fn: pass("agg.ad_spend")},
		{Name: MetricTACoS, Requires: []string{"agg.ad_spend", "agg.net_revenue"}, Fn: overRevenue("agg.ad_spend", "agg.net_revenue")},
		{Name: "acos", Requires: []string{"agg.ad_spend", "agg.ad_sales"}, Fn: ratio("agg.ad_spend", "agg.ad_sales")},
		{Name: MetricConversionRate, Requires: []string{"agg.conversion_rate"}, Fn: pass("agg.conversion_rate")},
		{Name: MetricPurchaseShare, Requires: []string{"agg.own_purchases", "agg.total_market_purchases"},
			Fn: ratio("agg.own_purchases", "agg.total_market_purchases")},
		{Name: MetricHealthyInventoryPct, Requires: []string{"agg." + MetricHealthyInventoryPct}, Fn: pass("agg." + MetricHealthyInventoryPct)},
		{Name: MetricContributionMargin, Requires: []string{"agg." + MetricContributionMargin}, Fn: pass("agg." + MetricContributionMargin)},
		{Name: MetricContributionPct, Requires: []string{"agg." + MetricContributionMargin, "agg.net_revenue"},
			Fn: overRevenue("agg."+MetricContributionMargin, "agg.net_revenue")},
	}
}

// Portfolio derives the brand-level metrics.
func (d *Deriver) Portfolio(agg *Aggregates) model.Metrics {
	return Run(PortfolioDerivations(), Inputs{Agg: agg, Model: &d.model})
}
