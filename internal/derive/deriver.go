package derive

import (
	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Deriver holds the derivation lists built from one model configuration.
// It has no mutable state and is safe for concurrent use.
type Deriver struct {
	model   config.ModelConfig
	items   []Derivation
	queries []Derivation
}

// New builds a deriver for a model configuration.
func New(m config.ModelConfig) *Deriver {
	return &Deriver{model: m, items: ItemDerivations(m), queries: QueryDerivations(m)}
}

// Item derives every identifier-level metric.
func (d *Deriver) Item(in Inputs) model.Metrics {
	in.Model = &d.model
	return Run(d.items, in)
}

// Query derives every query-level metric.
func (d *Deriver) Query(in Inputs) model.Metrics {
	in.Model = &d.model
	return Run(d.queries, in)
}
