package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// weightEpsilon is the tolerance on a model's weight sum.
const weightEpsilon = 1e-6

// Threshold maps values at or above Min to Band.
type Threshold struct {
	Min  float64 `yaml:"min" json:"min"`
	Band int     `yaml:"band" json:"band"`
}

// Factor is one weighted, banded input of a scoring model. Bands are
// evaluated in order and the first threshold the value reaches wins;
// values below every threshold get Floor.
type Factor struct {
	Name   string      `yaml:"name" json:"name"`
	Metric string      `yaml:"metric" json:"metric"`
	Weight float64     `yaml:"weight" json:"weight"`
	Bands  []Threshold `yaml:"bands" json:"bands"`
	Floor  int         `yaml:"floor" json:"floor"`
}

// Trend buckets a year-over-year metric into a composite multiplier.
type Trend struct {
	Metric         string  `yaml:"metric" json:"metric"`
	Down           float64 `yaml:"down" json:"down"`
	Up             float64 `yaml:"up" json:"up"`
	DownMultiplier float64 `yaml:"down_multiplier" json:"down_multiplier"`
	FlatMultiplier float64 `yaml:"flat_multiplier" json:"flat_multiplier"`
	UpMultiplier   float64 `yaml:"up_multiplier" json:"up_multiplier"`
}

// ScoringModel is an ordered list of weighted factors.
type ScoringModel struct {
	Name         string   `yaml:"name" json:"name"`
	Factors      []Factor `yaml:"factors" json:"factors"`
	FallbackBand int      `yaml:"fallback_band" json:"fallback_band"`
	Trend        *Trend   `yaml:"trend,omitempty" json:"trend,omitempty"`
}

// WeightSum returns the sum of factor weights.
func (m ScoringModel) WeightSum() float64 {
	var s float64
	for _, f := range m.Factors {
		s += f.Weight
	}
	return s
}

// Factor returns the named factor.
func (m ScoringModel) Factor(name string) (Factor, bool) {
	for _, f := range m.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return Factor{}, false
}

// DecisionThresholds are the lower bounds of each decision on the 1-5
// composite scale. Anything below Optimize is Exit.
type DecisionThresholds struct {
	Invest   float64 `yaml:"invest" json:"invest"`
	Maintain float64 `yaml:"maintain" json:"maintain"`
	Optimize float64 `yaml:"optimize" json:"optimize"`
}

// QuadrantConfig names the keep/kill factors forming the two axes and the
// band at which each axis counts as high.
type QuadrantConfig struct {
	MarginFactor string `yaml:"margin_factor" json:"margin_factor"`
	GrowthFactor string `yaml:"growth_factor" json:"growth_factor"`
	MarginHigh   int    `yaml:"margin_high" json:"margin_high"`
	GrowthHigh   int    `yaml:"growth_high" json:"growth_high"`
}

// QueryRules holds the query classifier's rule order and thresholds.
type QueryRules struct {
	Order          []string `yaml:"order" json:"order"`
	TopRank        float64  `yaml:"top_rank" json:"top_rank"`
	LowACoS        float64  `yaml:"low_acos" json:"low_acos"`
	TargetACoS     float64  `yaml:"target_acos" json:"target_acos"`
	HighVolume     float64  `yaml:"high_volume" json:"high_volume"`
	HighSpend      float64  `yaml:"high_spend" json:"high_spend"`
	MinImpressions float64  `yaml:"min_impressions" json:"min_impressions"`
	DecliningROAS  float64  `yaml:"declining_roas" json:"declining_roas"`
}

// Grade is a letter assigned at or above Min on the 0-100 scale.
type Grade struct {
	Min   float64 `yaml:"min" json:"min"`
	Label string  `yaml:"label" json:"label"`
}

// ForecastConfig controls trend and seasonality projection.
type ForecastConfig struct {
	Horizon              int     `yaml:"horizon" json:"horizon"`
	TrendMonths          int     `yaml:"trend_months" json:"trend_months"`
	SeasonalityMonths    int     `yaml:"seasonality_months" json:"seasonality_months"`
	MinSeasonalityMonths int     `yaml:"min_seasonality_months" json:"min_seasonality_months"`
	MinPoints            int     `yaml:"min_points" json:"min_points"`
	HighMonths           int     `yaml:"high_months" json:"high_months"`
	MediumMonths         int     `yaml:"medium_months" json:"medium_months"`
	MaxResidualCV        float64 `yaml:"max_residual_cv" json:"max_residual_cv"`
}

// ActionEffect is the assumed outcome of taking an action: a revenue (or
// spend-attributed sales) uplift, a margin change, and a spend change.
type ActionEffect struct {
	Uplift      float64 `yaml:"uplift" json:"uplift"`
	MarginDelta float64 `yaml:"margin_delta" json:"margin_delta"`
	SpendChange float64 `yaml:"spend_change" json:"spend_change"`
	Effort      string  `yaml:"effort" json:"effort"`
}

// InventoryConfig holds inventory health thresholds.
type InventoryConfig struct {
	LowStockDays  float64 `yaml:"low_stock_days" json:"low_stock_days"`
	ExcessDays    float64 `yaml:"excess_days" json:"excess_days"`
	AgedShare     float64 `yaml:"aged_share" json:"aged_share"`
	StorageMonths float64 `yaml:"storage_months" json:"storage_months"`
}

// WindowConfig defines canonical windows relative to the as-of date.
type WindowConfig struct {
	CurrentDays    int `yaml:"current_days" json:"current_days"`
	PriorYearShift int `yaml:"prior_year_shift" json:"prior_year_shift"`
	TrailingDays   int `yaml:"trailing_days" json:"trailing_days"`
	ToleranceDays  int `yaml:"tolerance_days" json:"tolerance_days"`
}

// HierarchyConfig controls parent-ASIN roll-ups. HeroCount children per
// parent, ranked by net revenue, are marked as heroes.
type HierarchyConfig struct {
	HeroCount int `yaml:"hero_count" json:"hero_count"`
}

// AdvertisingConfig shapes the performer lists of the advertising summary.
// A query is a worst performer when it spent at least WorstMinSpend and
// either sold nothing or ran above WorstACoS.
type AdvertisingConfig struct {
	TopN          int     `yaml:"top_n" json:"top_n"`
	WorstMinSpend float64 `yaml:"worst_min_spend" json:"worst_min_spend"`
	WorstACoS     float64 `yaml:"worst_acos" json:"worst_acos"`
}

// ModelConfig is the complete scoring and classification configuration.
type ModelConfig struct {
	KeepKill        ScoringModel            `yaml:"keep_kill" json:"keep_kill"`
	BrandHealth     ScoringModel            `yaml:"brand_health" json:"brand_health"`
	QueryEfficiency ScoringModel            `yaml:"query_efficiency" json:"query_efficiency"`
	Decision        DecisionThresholds      `yaml:"decision" json:"decision"`
	Quadrant        QuadrantConfig          `yaml:"quadrant" json:"quadrant"`
	QueryRules      QueryRules              `yaml:"query_rules" json:"query_rules"`
	Grades          []Grade                 `yaml:"grades" json:"grades"`
	Forecast        ForecastConfig          `yaml:"forecast" json:"forecast"`
	Actions         map[string]ActionEffect `yaml:"actions" json:"actions"`
	StrategicFit    map[string]float64      `yaml:"strategic_fit" json:"strategic_fit"`
	Inventory       InventoryConfig         `yaml:"inventory" json:"inventory"`
	Windows         WindowConfig            `yaml:"windows" json:"windows"`
	Hierarchy       HierarchyConfig         `yaml:"hierarchy" json:"hierarchy"`
	Advertising     AdvertisingConfig       `yaml:"advertising" json:"advertising"`
}

// ConfigError lists every problem found in a model configuration.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "config: invalid model: " + strings.Join(e.Problems, "; ")
}

// DefaultModel returns the built-in audit model.
func DefaultModel() ModelConfig {
	return ModelConfig{
		KeepKill: ScoringModel{
			Name:         "keep_kill",
			FallbackBand: 3,
			Factors: []Factor{
				{Name: "margin", Metric: "contribution_margin_pct", Weight: 0.25, Floor: 1,
					Bands: []Threshold{{0.30, 5}, {0.20, 4}, {0.10, 3}, {0, 2}}},
				{Name: "growth", Metric: "revenue_yoy_growth", Weight: 0.20, Floor: 1,
					Bands: []Threshold{{0.20, 5}, {0.10, 4}, {0, 3}, {-0.10, 2}}},
				{Name: "market_share", Metric: "market_share_change", Weight: 0.15, Floor: 1,
					Bands: []Threshold{{0.02, 5}, {0.005, 4}, {-0.005, 3}, {-0.02, 2}}},
				{Name: "review_velocity", Metric: "review_velocity", Weight: 0.10, Floor: 1,
					Bands: []Threshold{{10, 5}, {5, 4}, {2, 3}, {1, 2}}},
				{Name: "rating", Metric: "rating", Weight: 0.10, Floor: 1,
					Bands: []Threshold{{4.5, 5}, {4.2, 4}, {4.0, 3}, {3.5, 2}}},
				{Name: "inventory", Metric: "days_of_supply", Weight: 0.10, Floor: 1,
					Bands: []Threshold{{180, 2}, {90, 4}, {30, 5}, {14, 3}}},
				{Name: "strategic_fit", Metric: "strategic_fit_score", Weight: 0.10, Floor: 1,
					Bands: []Threshold{{3, 5}, {2, 3}}},
			},
			Trend: &Trend{
				Metric: "revenue_yoy_growth", Down: -0.10, Up: 0.10,
				DownMultiplier: 0.8, FlatMultiplier: 1.0, UpMultiplier: 1.2,
			},
		},
		BrandHealth: ScoringModel{
			Name:         "brand_health",
			FallbackBand: 3,
			Factors: []Factor{
				{Name: "market_position", Metric: "purchase_share", Weight: 0.25, Floor: 1,
					Bands: []Threshold{{0.20, 5}, {0.10, 4}, {0.05, 3}, {0.02, 2}}},
				{Name: "conversion", Metric: "conversion_rate", Weight: 0.25, Floor: 1,
					Bands: []Threshold{{0.15, 5}, {0.10, 4}, {0.07, 3}, {0.04, 2}}},
				{Name: "inventory_health", Metric: "healthy_inventory_pct", Weight: 0.20, Floor: 1,
					Bands: []Threshold{{0.90, 5}, {0.75, 4}, {0.60, 3}, {0.40, 2}}},
				{Name: "ad_efficiency", Metric: "tacos", Weight: 0.30, Floor: 5,
					Bands: []Threshold{{0.25, 1}, {0.15, 2}, {0.10, 3}, {0.05, 4}}},
			},
		},
		QueryEfficiency: ScoringModel{
			Name:         "query_efficiency",
			FallbackBand: 3,
			Factors: []Factor{
				{Name: "acos_vs_target", Metric: "acos_ratio", Weight: 0.40, Floor: 5,
					Bands: []Threshold{{1.25, 1}, {1.0, 2}, {0.75, 3}, {0.5, 4}}},
				{Name: "cvr", Metric: "cvr", Weight: 0.30, Floor: 1,
					Bands: []Threshold{{0.15, 5}, {0.10, 4}, {0.05, 3}, {0.02, 2}}},
				{Name: "cpc", Metric: "cpc", Weight: 0.20, Floor: 5,
					Bands: []Threshold{{2, 2}, {1, 3}, {0.5, 4}}},
				{Name: "volume", Metric: "impressions", Weight: 0.10, Floor: 2,
					Bands: []Threshold{{10000, 5}, {5000, 4}, {1000, 3}}},
			},
			Trend: &Trend{
				Metric: "roas_trend", Down: -0.10, Up: 0.10,
				DownMultiplier: 0.8, FlatMultiplier: 1.0, UpMultiplier: 1.2,
			},
		},
		Decision: DecisionThresholds{Invest: 4.0, Maintain: 3.0, Optimize: 2.0},
		// Equal high bands: the margin-wins tie rule only matters once they differ.
		Quadrant: QuadrantConfig{
			MarginFactor: "margin", GrowthFactor: "growth",
			MarginHigh: 4, GrowthHigh: 4,
		},
		QueryRules: QueryRules{
			Order:          []string{"defend", "attack", "harvest", "test", "eliminate"},
			TopRank:        3,
			LowACoS:        0.15,
			TargetACoS:     0.30,
			HighVolume:     5000,
			HighSpend:      100,
			MinImpressions: 1000,
			DecliningROAS:  -0.10,
		},
		Grades: []Grade{
			{90, "A+"}, {80, "A"}, {70, "B+"}, {60, "B"}, {50, "C"}, {40, "D"}, {0, "F"},
		},
		Forecast: ForecastConfig{
			Horizon:              3,
			TrendMonths:          12,
			SeasonalityMonths:    24,
			MinSeasonalityMonths: 12,
			MinPoints:            3,
			HighMonths:           24,
			MediumMonths:         12,
			MaxResidualCV:        0.25,
		},
		Actions: map[string]ActionEffect{
			"invest":       {Uplift: 0.20, Effort: "high"},
			"maintain":     {Uplift: 0.02, Effort: "low"},
			"optimize":     {MarginDelta: 0.05, Effort: "medium"},
			"exit":         {Uplift: -1, Effort: "medium"},
			"defend":       {Uplift: 0.05, SpendChange: 0.05, Effort: "low"},
			"attack":       {Uplift: 0.30, SpendChange: 0.30, Effort: "medium"},
			"harvest":      {Uplift: -0.10, SpendChange: -0.30, Effort: "low"},
			"eliminate":    {Uplift: -1, SpendChange: -1, Effort: "low"},
			"test":         {Effort: "low"},
			"unclassified": {Effort: "low"},
		},
		StrategicFit: map[string]float64{"core": 3, "adjacent": 2, "non_core": 1},
		Inventory: InventoryConfig{
			LowStockDays: 14, ExcessDays: 180, AgedShare: 0.30, StorageMonths: 3,
		},
		Windows: WindowConfig{
			CurrentDays: 91, PriorYearShift: 364, TrailingDays: 365, ToleranceDays: 7,
		},
		Hierarchy:   HierarchyConfig{HeroCount: 3},
		Advertising: AdvertisingConfig{TopN: 10, WorstMinSpend: 20, WorstACoS: 0.50},
	}
}

// LoadModel reads a YAML model file over the defaults. An empty path
// returns the defaults. The result is validated.
func LoadModel(path string) (ModelConfig, error) {
	if path == "" {
		return ParseModel(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelConfig{}, eris.Wrapf(err, "config: read model %s", path)
	}
	return ParseModel(data)
}

// ParseModel decodes a YAML model document over the defaults and validates
// the result. Empty input yields the defaults.
func ParseModel(data []byte) (ModelConfig, error) {
	m := DefaultModel()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return ModelConfig{}, eris.Wrap(err, "config: parse model")
		}
	}
	if err := ValidateModel(m); err != nil {
		return ModelConfig{}, err
	}
	return m, nil
}

// MarshalModel renders a model as YAML.
func MarshalModel(m ModelConfig) ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "config: marshal model")
	}
	return out, nil
}

// ValidateModel checks weights, band tables, thresholds and rule order.
// It returns a *ConfigError listing every problem, or nil.
func ValidateModel(m ModelConfig) error {
	var errs []string

	for _, sm := range []ScoringModel{m.KeepKill, m.BrandHealth, m.QueryEfficiency} {
		errs = append(errs, validateScoringModel(sm)...)
	}

	d := m.Decision
	if !(d.Invest > d.Maintain && d.Maintain > d.Optimize) {
		errs = append(errs, fmt.Sprintf("decision thresholds must descend (invest %.2f, maintain %.2f, optimize %.2f)",
			d.Invest, d.Maintain, d.Optimize))
	}
	if d.Invest > 5 || d.Optimize < 1 {
		errs = append(errs, "decision thresholds must lie within the 1-5 band scale")
	}

	q := m.Quadrant
	if _, ok := m.KeepKill.Factor(q.MarginFactor); !ok {
		errs = append(errs, fmt.Sprintf("quadrant margin factor %q not in keep_kill model", q.MarginFactor))
	}
	if _, ok := m.KeepKill.Factor(q.GrowthFactor); !ok {
		errs = append(errs, fmt.Sprintf("quadrant growth factor %q not in keep_kill model", q.GrowthFactor))
	}
	if q.MarginHigh < 1 || q.MarginHigh > 5 || q.GrowthHigh < 1 || q.GrowthHigh > 5 {
		errs = append(errs, "quadrant high bands must be between 1 and 5")
	}

	errs = append(errs, validateRuleOrder(m.QueryRules.Order)...)
	if m.QueryRules.TargetACoS <= 0 {
		errs = append(errs, "query_rules.target_acos must be > 0")
	}

	for i := 1; i < len(m.Grades); i++ {
		if m.Grades[i].Min >= m.Grades[i-1].Min {
			errs = append(errs, fmt.Sprintf("grade %q must have a lower minimum than %q", m.Grades[i].Label, m.Grades[i-1].Label))
		}
	}

	f := m.Forecast
	if f.Horizon < 1 {
		errs = append(errs, "forecast.horizon must be >= 1")
	}
	if f.MinPoints < 2 {
		errs = append(errs, "forecast.min_points must be >= 2")
	}
	if f.TrendMonths < f.MinPoints {
		errs = append(errs, "forecast.trend_months must be >= forecast.min_points")
	}
	if f.SeasonalityMonths < 12 {
		errs = append(errs, "forecast.seasonality_months must be >= 12")
	}

	actions := make([]string, 0, len(m.Actions))
	for name := range m.Actions {
		actions = append(actions, name)
	}
	sort.Strings(actions)
	for _, name := range actions {
		switch m.Actions[name].Effort {
		case "low", "medium", "high":
		default:
			errs = append(errs, fmt.Sprintf("action %q has invalid effort %q", name, m.Actions[name].Effort))
		}
	}

	w := m.Windows
	if w.CurrentDays < 1 || w.TrailingDays < w.CurrentDays || w.PriorYearShift < 1 || w.ToleranceDays < 0 {
		errs = append(errs, "windows must have current_days >= 1, trailing_days >= current_days, prior_year_shift >= 1")
	}

	if m.Hierarchy.HeroCount < 1 {
		errs = append(errs, "hierarchy.hero_count must be >= 1")
	}
	a := m.Advertising
	if a.TopN < 1 || a.WorstMinSpend < 0 || a.WorstACoS <= 0 {
		errs = append(errs, "advertising must have top_n >= 1, worst_min_spend >= 0, worst_acos > 0")
	}

	if len(errs) > 0 {
		return &ConfigError{Problems: errs}
	}
	return nil
}

func validateScoringModel(sm ScoringModel) []string {
	var errs []string
	if len(sm.Factors) == 0 {
		return []string{fmt.Sprintf("%s: no factors", sm.Name)}
	}
	if sum := sm.WeightSum(); math.Abs(sum-1.0) > weightEpsilon {
		errs = append(errs, fmt.Sprintf("%s: weights sum to %.4f, expected 1.0", sm.Name, sum))
	}
	if sm.FallbackBand < 1 || sm.FallbackBand > 5 {
		errs = append(errs, fmt.Sprintf("%s: fallback_band %d outside 1-5", sm.Name, sm.FallbackBand))
	}
	seen := make(map[string]bool)
	for _, f := range sm.Factors {
		if f.Name == "" || f.Metric == "" {
			errs = append(errs, fmt.Sprintf("%s: factor needs a name and a metric", sm.Name))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate factor %q", sm.Name, f.Name))
		}
		seen[f.Name] = true
		if f.Weight < 0 {
			errs = append(errs, fmt.Sprintf("%s.%s: negative weight", sm.Name, f.Name))
		}
		if f.Floor < 1 || f.Floor > 5 {
			errs = append(errs, fmt.Sprintf("%s.%s: banding table has a gap below its lowest threshold (floor %d)", sm.Name, f.Name, f.Floor))
		}
		for i, b := range f.Bands {
			if b.Band < 1 || b.Band > 5 {
				errs = append(errs, fmt.Sprintf("%s.%s: band %d outside 1-5", sm.Name, f.Name, b.Band))
			}
			if i > 0 && b.Min >= f.Bands[i-1].Min {
				errs = append(errs, fmt.Sprintf("%s.%s: thresholds must strictly descend (%g after %g)", sm.Name, f.Name, b.Min, f.Bands[i-1].Min))
			}
		}
	}
	if t := sm.Trend; t != nil {
		if t.Metric == "" {
			errs = append(errs, fmt.Sprintf("%s: trend needs a metric", sm.Name))
		}
		if t.Down > t.Up {
			errs = append(errs, fmt.Sprintf("%s: trend down bound above up bound", sm.Name))
		}
		if t.DownMultiplier <= 0 || t.FlatMultiplier <= 0 || t.UpMultiplier <= 0 {
			errs = append(errs, fmt.Sprintf("%s: trend multipliers must be > 0", sm.Name))
		}
	}
	return errs
}

var strategies = []string{"defend", "attack", "harvest", "test", "eliminate"}

func validateRuleOrder(order []string) []string {
	var errs []string
	count := make(map[string]int)
	for _, r := range order {
		count[r]++
	}
	for _, s := range strategies {
		if count[s] != 1 {
			errs = append(errs, fmt.Sprintf("query_rules.order must list %q exactly once", s))
		}
		delete(count, s)
	}
	extra := make([]string, 0, len(count))
	for r := range count {
		extra = append(extra, r)
	}
	sort.Strings(extra)
	for _, r := range extra {
		errs = append(errs, fmt.Sprintf("query_rules.order has unknown rule %q", r))
	}
	return errs
}
