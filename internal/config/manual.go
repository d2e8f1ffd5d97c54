package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ItemInputs are the manual, per-identifier inputs that no report carries.
// Nil pointers are missing, not zero.
type ItemInputs struct {
	COGS           *float64 `yaml:"cogs,omitempty" json:"cogs,omitempty"`
	LandedCost     *float64 `yaml:"landed_cost,omitempty" json:"landed_cost,omitempty"`
	TargetMargin   *float64 `yaml:"target_margin,omitempty" json:"target_margin,omitempty"`
	FulfillmentFee *float64 `yaml:"fulfillment_fee,omitempty" json:"fulfillment_fee,omitempty"`
	ReferralFeePct *float64 `yaml:"referral_fee_pct,omitempty" json:"referral_fee_pct,omitempty"`
	ReturnRate     *float64 `yaml:"return_rate,omitempty" json:"return_rate,omitempty"`
	StrategicFit   string   `yaml:"strategic_fit,omitempty" json:"strategic_fit,omitempty"`
}

// ManualInputs is the manual-input configuration for a run.
type ManualInputs struct {
	BrandTerms []string              `yaml:"brand_terms" json:"brand_terms"`
	Items      map[string]ItemInputs `yaml:"items" json:"items"`
}

// Item returns the inputs for an identifier, or the zero value.
func (m *ManualInputs) Item(id string) ItemInputs {
	if m == nil {
		return ItemInputs{}
	}
	return m.Items[id]
}

// IsBranded reports whether a search query contains any brand term.
func (m *ManualInputs) IsBranded(query string) bool {
	if m == nil {
		return false
	}
	q := strings.ToLower(query)
	for _, term := range m.BrandTerms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t != "" && strings.Contains(q, t) {
			return true
		}
	}
	return false
}

// LoadManualInputs reads a YAML manual-input file. An empty path returns
// empty inputs.
func LoadManualInputs(path string) (*ManualInputs, error) {
	if path == "" {
		return &ManualInputs{Items: map[string]ItemInputs{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read manual inputs %s", path)
	}
	m, err := ParseManualInputs(data)
	if err != nil {
		return nil, eris.Wrapf(err, "config: manual inputs %s", path)
	}
	return m, nil
}

// ParseManualInputs decodes a YAML manual-input document.
func ParseManualInputs(data []byte) (*ManualInputs, error) {
	m := &ManualInputs{Items: map[string]ItemInputs{}}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, eris.Wrap(err, "config: parse manual inputs")
	}
	if m.Items == nil {
		m.Items = map[string]ItemInputs{}
	}
	return m, nil
}
