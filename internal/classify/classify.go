// Package classify maps composite scores and metric patterns to labels.
// Every classifier is a pure function of its inputs.
package classify

import (
	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Quadrant places an identifier on the margin x growth grid using the
// keep/kill margin and growth sub-score bands. An axis is high when its band
// reaches the configured threshold. When the two bands are equal but the
// axes split (only possible with different thresholds) the margin axis wins.
func Quadrant(cs model.CompositeScore, q config.QuadrantConfig) model.Quadrant {
	margin, _ := cs.SubScore(q.MarginFactor)
	growth, _ := cs.SubScore(q.GrowthFactor)

	highMargin := margin.Band >= q.MarginHigh
	highGrowth := growth.Band >= q.GrowthHigh
	if margin.Band == growth.Band && highMargin != highGrowth {
		highMargin, highGrowth = true, false
	}

	switch {
	case highMargin && highGrowth:
		return model.QuadrantStar
	case highMargin:
		return model.QuadrantCashCow
	case highGrowth:
		return model.QuadrantQuestionMark
	}
	return model.QuadrantDog
}

// Decide maps an adjusted composite (1-5 scale) to an action. Bands are
// inclusive at their lower bound.
func Decide(adjusted float64, t config.DecisionThresholds) model.Decision {
	switch {
	case adjusted >= t.Invest:
		return model.DecisionInvest
	case adjusted >= t.Maintain:
		return model.DecisionMaintain
	case adjusted >= t.Optimize:
		return model.DecisionOptimize
	}
	return model.DecisionExit
}
