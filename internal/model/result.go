package model

// DerivedMetric is a computed value attached to a fact row, with the
// inputs that were absent when it was derived.
type DerivedMetric struct {
	Value           Value    `json:"value"`
	MissingInputs   []string `json:"missing_inputs,omitempty"`
	OptionalMissing []string `json:"optional_missing,omitempty"`
	Flags           []string `json:"flags,omitempty"`
}

// Metrics maps metric name to derived metric.
type Metrics map[string]DerivedMetric

// Get returns the named metric value, missing when unknown.
func (m Metrics) Get(name string) Value {
	d, ok := m[name]
	if !ok {
		return Missing()
	}
	return d.Value
}

// HasFlag reports whether any metric carries the flag.
func (m Metrics) HasFlag(flag string) bool {
	for _, d := range m {
		for _, f := range d.Flags {
			if f == flag {
				return true
			}
		}
	}
	return false
}

// SubScore is one banded factor of a composite score.
type SubScore struct {
	Factor  string  `json:"factor"`
	Metric  string  `json:"metric"`
	Weight  float64 `json:"weight"`
	Band    int     `json:"band"`
	Value   Value   `json:"value"`
	Imputed bool    `json:"imputed"`
}

// CompositeScore is the weighted sum of sub-scores. Raw and Adjusted are on
// the 1-5 band scale; Score is Adjusted mapped onto 0-100.
type CompositeScore struct {
	Model           string     `json:"model"`
	Raw             float64    `json:"raw"`
	TrendMultiplier float64    `json:"trend_multiplier"`
	Adjusted        float64    `json:"adjusted"`
	Score           float64    `json:"score"`
	LowConfidence   bool       `json:"low_confidence"`
	SubScores       []SubScore `json:"sub_scores"`
}

// SubScore returns the named factor.
func (c CompositeScore) SubScore(factor string) (SubScore, bool) {
	for _, s := range c.SubScores {
		if s.Factor == factor {
			return s, true
		}
	}
	return SubScore{}, false
}

// Quadrant is the margin x growth portfolio position.
type Quadrant string

const (
	QuadrantStar         Quadrant = "star"
	QuadrantCashCow      Quadrant = "cash_cow"
	QuadrantQuestionMark Quadrant = "question_mark"
	QuadrantDog          Quadrant = "dog"
)

// Decision is the identifier-level action category.
type Decision string

const (
	DecisionInvest   Decision = "invest"
	DecisionMaintain Decision = "maintain"
	DecisionOptimize Decision = "optimize"
	DecisionExit     Decision = "exit"
)

// Strategy is the query-level bidding strategy.
type Strategy string

const (
	StrategyDefend       Strategy = "defend"
	StrategyAttack       Strategy = "attack"
	StrategyHarvest      Strategy = "harvest"
	StrategyTest         Strategy = "test"
	StrategyEliminate    Strategy = "eliminate"
	StrategyUnclassified Strategy = "unclassified"
)

// Confidence grades a forecast.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Effort is the implementation cost of an action.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Rank orders efforts from cheapest to most expensive.
func (e Effort) Rank() int {
	switch e {
	case EffortLow:
		return 0
	case EffortMedium:
		return 1
	case EffortHigh:
		return 2
	}
	return 3
}

// Seasonality holds one index per calendar month (January first).
type Seasonality struct {
	Index         [12]Value `json:"index"`
	Months        int       `json:"months"`
	LowConfidence bool      `json:"low_confidence"`
}

// ForecastPoint is one projected month.
type ForecastPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// Forecast is a projection with its confidence; never a bare number.
type Forecast struct {
	Metric        string          `json:"metric"`
	Points        []ForecastPoint `json:"points"`
	Total         float64         `json:"total"`
	Slope         float64         `json:"slope"`
	HistoryMonths int             `json:"history_months"`
	Confidence    Confidence      `json:"confidence"`
}

// Warning kinds.
const (
	WarnInsufficientData   = "insufficient_data"
	WarnPeriodApproximated = "period_approximated"
	WarnReportFailed       = "report_failed"
)

// Warning is a non-fatal condition attached to a result.
type Warning struct {
	Kind    string `json:"kind"`
	Module  string `json:"module"`
	Subject string `json:"subject,omitempty"`
	Reason  string `json:"reason"`
}

// ItemResult is the per-identifier output.
type ItemResult struct {
	ID                 Identifier     `json:"id"`
	Title              string         `json:"title,omitempty"`
	Parent             Identifier     `json:"parent,omitempty"`
	Hero               bool           `json:"hero,omitempty"`
	Sources            []ReportType   `json:"sources"`
	PeriodApproximated bool           `json:"period_approximated"`
	Metrics            Metrics        `json:"metrics"`
	Score              CompositeScore `json:"score"`
	Quadrant           Quadrant       `json:"quadrant"`
	Decision           Decision       `json:"decision"`
	Seasonality        *Seasonality   `json:"seasonality,omitempty"`
	Forecast           *Forecast      `json:"forecast,omitempty"`
	Unavailable        []string       `json:"unavailable,omitempty"`
}

// Family is a parent ASIN and its scored children. Revenue and Units sum
// the children that report them and are missing when none do.
type Family struct {
	Parent   Identifier   `json:"parent"`
	Children []Identifier `json:"children"`
	Heroes   []Identifier `json:"heroes"`
	Revenue  Value        `json:"revenue"`
	Units    Value        `json:"units"`
}

// QueryResult is the per-query output.
type QueryResult struct {
	Query       string         `json:"query"`
	Identifiers []Identifier   `json:"identifiers,omitempty"`
	Branded     bool           `json:"branded"`
	Metrics     Metrics        `json:"metrics"`
	Score       CompositeScore `json:"score"`
	Strategy    Strategy       `json:"strategy"`
}

// PortfolioResult is the brand-level health assessment.
type PortfolioResult struct {
	Metrics Metrics        `json:"metrics"`
	Score   CompositeScore `json:"score"`
	Grade   string         `json:"grade"`
}

// ReportStat records what the normalizer did with one report.
type ReportStat struct {
	Report    ReportType `json:"report"`
	Name      string     `json:"name"`
	Rows      int        `json:"rows"`
	Dropped   int        `json:"dropped"`
	Records   int        `json:"records"`
	ErrorKind string     `json:"error_kind,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Rationale explains a recommendation. Insight is opaque prose from the
// text-generation collaborator and never feeds a decision.
type Rationale struct {
	Reason  string           `json:"reason"`
	Metrics map[string]Value `json:"metrics"`
	Insight string           `json:"insight,omitempty"`
}

// Recommendation is one ranked action.
type Recommendation struct {
	Rank      int       `json:"rank"`
	Level     Level     `json:"level"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Effort    Effort    `json:"effort"`
	Impact    Value     `json:"impact"`
	Rationale Rationale `json:"rationale"`
}

// Performer is one advertised query in a performer list.
type Performer struct {
	Query    string   `json:"query"`
	Spend    Value    `json:"spend"`
	Sales    Value    `json:"sales"`
	ACoS     Value    `json:"acos"`
	Strategy Strategy `json:"strategy"`
}

// AdvertisingSummary totals current-window advertising over every query
// with spend. Rates are missing when their denominator is zero.
type AdvertisingSummary struct {
	Queries     int         `json:"queries"`
	Spend       Value       `json:"spend"`
	Sales       Value       `json:"sales"`
	Orders      Value       `json:"orders"`
	Impressions Value       `json:"impressions"`
	Clicks      Value       `json:"clicks"`
	ACoS        Value       `json:"acos"`
	ROAS        Value       `json:"roas"`
	CTR         Value       `json:"ctr"`
	CVR         Value       `json:"cvr"`
	Top         []Performer `json:"top,omitempty"`
	Worst       []Performer `json:"worst,omitempty"`
}

// Summary holds run-level roll-ups.
type Summary struct {
	Decisions        map[Decision]int    `json:"decisions"`
	Strategies       map[Strategy]int    `json:"strategies"`
	WastedSpend      Value               `json:"wasted_spend"`
	Advertising      *AdvertisingSummary `json:"advertising,omitempty"`
	ExecutiveSummary string              `json:"executive_summary,omitempty"`
}

// Result is the structured bundle handed to rendering collaborators.
type Result struct {
	AsOf            string            `json:"as_of"`
	Windows         map[Window]Period `json:"windows"`
	Reports         []ReportStat      `json:"reports"`
	Items           []ItemResult      `json:"items"`
	Queries         []QueryResult     `json:"queries"`
	Portfolio       *PortfolioResult  `json:"portfolio,omitempty"`
	Families        []Family          `json:"families,omitempty"`
	Recommendations []Recommendation  `json:"recommendations"`
	Summary         Summary           `json:"summary"`
	Warnings        []Warning         `json:"warnings,omitempty"`
}
