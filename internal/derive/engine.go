// Package derive computes derived metrics from joined fact rows. Every
// metric is a pure function of fact fields, manual inputs and run-level
// aggregates; a metric whose required inputs are missing is itself missing.
package derive

import (
	"strings"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Input name prefixes. Unprefixed names resolve to metrics derived earlier
// in the list, then to fields of the current-window fact row.
const (
	prefixPrior  = "prior."
	prefixManual = "manual."
	prefixAgg    = "agg."
)

// Getter resolves an input name to a value.
type Getter func(name string) model.Value

// Derivation declares one metric: its inputs and formula. Derivations run
// in list order, so a metric may depend on any metric above it.
type Derivation struct {
	Name     string
	Requires []string
	Optional []string
	Fn       func(g Getter) model.Value
	// Flags labels the result; it runs only when required inputs are present.
	Flags func(v model.Value, g Getter) []string
}

// Inputs is everything a derivation may read for one subject.
type Inputs struct {
	Current *model.FactRow
	Prior   *model.FactRow
	Manual  config.ItemInputs
	Branded bool
	Agg     *Aggregates
	Model   *config.ModelConfig
}

type env struct {
	in  Inputs
	out model.Metrics
}

func (e *env) get(name string) model.Value {
	switch {
	case strings.HasPrefix(name, prefixPrior):
		return e.in.Prior.Get(strings.TrimPrefix(name, prefixPrior))
	case strings.HasPrefix(name, prefixManual):
		return e.manual(strings.TrimPrefix(name, prefixManual))
	case strings.HasPrefix(name, prefixAgg):
		return e.in.Agg.Get(strings.TrimPrefix(name, prefixAgg))
	}
	if d, ok := e.out[name]; ok {
		return d.Value
	}
	return e.in.Current.Get(name)
}

func (e *env) manual(name string) model.Value {
	m := e.in.Manual
	ptr := func(p *float64) model.Value {
		if p == nil {
			return model.Missing()
		}
		return model.Of(*p)
	}
	switch name {
	case "cogs":
		return ptr(m.COGS)
	case "landed_cost":
		return ptr(m.LandedCost)
	case "target_margin":
		return ptr(m.TargetMargin)
	case "fulfillment_fee":
		return ptr(m.FulfillmentFee)
	case "referral_fee_pct":
		return ptr(m.ReferralFeePct)
	case "return_rate":
		return ptr(m.ReturnRate)
	case "strategic_fit_score":
		if m.StrategicFit == "" || e.in.Model == nil {
			return model.Missing()
		}
		if v, ok := e.in.Model.StrategicFit[m.StrategicFit]; ok {
			return model.Of(v)
		}
		return model.Missing()
	case "branded":
		if e.in.Branded {
			return model.Of(1)
		}
		return model.Of(0)
	}
	return model.Missing()
}

// Run evaluates derivations in order and returns every metric, present or
// missing, with the inputs it lacked.
func Run(ds []Derivation, in Inputs) model.Metrics {
	e := &env{in: in, out: make(model.Metrics, len(ds))}
	for _, d := range ds {
		var m model.DerivedMetric
		for _, r := range d.Requires {
			if e.get(r).IsMissing() {
				m.MissingInputs = append(m.MissingInputs, r)
			}
		}
		for _, o := range d.Optional {
			if e.get(o).IsMissing() {
				m.OptionalMissing = append(m.OptionalMissing, o)
			}
		}
		if len(m.MissingInputs) == 0 {
			m.Value = d.Fn(e.get)
			if d.Flags != nil {
				m.Flags = d.Flags(m.Value, e.get)
			}
			// A fallback chain of optional inputs that produced nothing
			// reports those inputs as the missing ones.
			if m.Value.IsMissing() && len(d.Requires) == 0 {
				m.MissingInputs, m.OptionalMissing = m.OptionalMissing, nil
			}
		}
		e.out[d.Name] = m
	}
	return e.out
}

// first returns the first present value.
func first(vs ...model.Value) model.Value {
	for _, v := range vs {
		if !v.IsMissing() {
			return v
		}
	}
	return model.Missing()
}

// ratio divides two named inputs.
func ratio(num, den string) func(Getter) model.Value {
	return func(g Getter) model.Value { return g(num).Div(g(den)) }
}

// pass copies an input through unchanged.
func pass(name string) func(Getter) model.Value {
	return func(g Getter) model.Value { return g(name) }
}

// change is the relative change from prior to current; missing when prior
// is not positive.
func change(cur, prior string) func(Getter) model.Value {
	return func(g Getter) model.Value {
		p := g(prior)
		if !p.Positive() {
			return model.Missing()
		}
		return g(cur).Sub(p).Div(p)
	}
}

// overRevenue divides by a revenue input, missing when revenue is not
// positive.
func overRevenue(num, revenue string) func(Getter) model.Value {
	return func(g Getter) model.Value {
		r := g(revenue)
		if !r.Positive() {
			return model.Missing()
		}
		return g(num).Div(r)
	}
}

func gapFlags(v model.Value, _ Getter) []string {
	if v.Positive() {
		return []string{FlagListingIssue}
	}
	return nil
}
