package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/classify"
	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/derive"
	"github.com/Fraztahir/adsellix-audit/internal/forecast"
	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/scorer"
)

// scope is the read-only state shared by every per-subject task after the
// reduction barrier.
type scope struct {
	table   *model.FactTable
	agg     *derive.Aggregates
	deriver *derive.Deriver
	model   config.ModelConfig
	manual  *config.ManualInputs
}

func (p *Pipeline) scoreItems(ctx context.Context, sc *scope) ([]model.ItemResult, []model.Warning, error) {
	ids := sc.table.IDs(model.LevelItem)
	items := make([]model.ItemResult, len(ids))
	warns := make([][]model.Warning, len(ids))

	done, err := fanOut(ctx, len(ids), p.opts.Workers, func(i int) {
		items[i], warns[i] = scoreItem(sc, ids[i])
	})

	var flat []model.Warning
	for i, ws := range warns {
		if done[i] {
			flat = append(flat, ws...)
		}
	}
	items = completed(items, done)
	zap.L().Info("pipeline: identifiers scored", zap.Int("identifiers", len(items)), zap.Int("total", len(ids)))
	if err != nil {
		return items, flat, &PartialResultsError{Stage: StageItems, Completed: len(items), Total: len(ids), Err: err}
	}
	return items, flat, nil
}

func scoreItem(sc *scope, id model.Identifier) (model.ItemResult, []model.Warning) {
	cur := sc.table.Row(model.LevelItem, id, model.WindowCurrent)
	prior := sc.table.Row(model.LevelItem, id, model.WindowPriorYear)

	it := model.ItemResult{ID: id}
	srcs := make(map[model.ReportType]bool)
	for _, w := range model.CanonicalWindows {
		row := sc.table.Row(model.LevelItem, id, w)
		if row == nil {
			continue
		}
		for _, s := range row.Sources {
			srcs[s] = true
		}
		if row.PeriodApproximated {
			it.PeriodApproximated = true
		}
		if it.Title == "" {
			it.Title = row.Text[model.FieldTitle]
		}
		// A standalone listing reports itself as its own parent.
		if parent := model.Identifier(row.Text[model.FieldParentASIN]); it.Parent == "" && parent != id {
			it.Parent = parent
		}
	}
	for _, rt := range model.ReportTypes {
		if srcs[rt] {
			it.Sources = append(it.Sources, rt)
		}
	}

	it.Metrics = sc.deriver.Item(derive.Inputs{
		Current: cur,
		Prior:   prior,
		Manual:  sc.manual.Item(string(id)),
		Agg:     sc.agg,
	})
	it.Score = scorer.Score(sc.model.KeepKill, it.Metrics)
	if it.PeriodApproximated {
		it.Score.LowConfidence = true
	}
	it.Decision = classify.Decide(it.Score.Adjusted, sc.model.Decision)
	it.Quadrant = classify.Quadrant(it.Score, sc.model.Quadrant)

	var warns []model.Warning
	history := sc.table.History[id]
	it.Seasonality = derive.Seasonality(history, sc.model.Forecast)
	if it.Seasonality == nil {
		it.Unavailable = append(it.Unavailable, "seasonality")
	}
	if fc, ok := forecast.Project(history, it.Seasonality, sc.model.Forecast); ok {
		it.Forecast = fc
	} else {
		it.Unavailable = append(it.Unavailable, "forecast")
		if len(history) > 0 {
			warns = append(warns, model.Warning{
				Kind:    model.WarnInsufficientData,
				Module:  "forecast",
				Subject: string(id),
				Reason: fmt.Sprintf("%d months of history, at least %d with revenue required",
					len(history), sc.model.Forecast.MinPoints),
			})
		}
	}

	zap.L().Debug("pipeline: identifier scored",
		zap.String("id", string(id)),
		zap.Float64("adjusted", it.Score.Adjusted),
		zap.String("decision", string(it.Decision)),
		zap.String("quadrant", string(it.Quadrant)),
	)
	return it, warns
}

func (p *Pipeline) scoreQueries(ctx context.Context, sc *scope) ([]model.QueryResult, error) {
	ids := sc.table.IDs(model.LevelQuery)
	queries := make([]model.QueryResult, len(ids))

	done, err := fanOut(ctx, len(ids), p.opts.Workers, func(i int) {
		queries[i] = scoreQuery(sc, ids[i])
	})

	queries = completed(queries, done)
	zap.L().Info("pipeline: queries classified", zap.Int("queries", len(queries)), zap.Int("total", len(ids)))
	if err != nil {
		return queries, &PartialResultsError{Stage: StageQueries, Completed: len(queries), Total: len(ids), Err: err}
	}
	return queries, nil
}

func scoreQuery(sc *scope, id model.Identifier) model.QueryResult {
	cur := sc.table.Row(model.LevelQuery, id, model.WindowCurrent)
	prior := sc.table.Row(model.LevelQuery, id, model.WindowPriorYear)

	asins := make(map[model.Identifier]bool)
	for _, w := range model.CanonicalWindows {
		if row := sc.table.Row(model.LevelQuery, id, w); row != nil {
			for _, a := range row.Identifiers {
				asins[a] = true
			}
		}
	}

	branded := sc.manual.IsBranded(string(id))
	q := model.QueryResult{
		Query:       string(id),
		Identifiers: sortedIdentifiers(asins),
		Branded:     branded,
		Metrics: sc.deriver.Query(derive.Inputs{
			Current: cur,
			Prior:   prior,
			Branded: branded,
			Agg:     sc.agg,
		}),
	}
	q.Score = scorer.Score(sc.model.QueryEfficiency, q.Metrics)
	q.Strategy = classify.Query(q.Metrics, sc.model.QueryRules)
	return q
}

func portfolio(sc *scope, items []model.ItemResult) *model.PortfolioResult {
	ms := make([]model.Metrics, len(items))
	for i, it := range items {
		ms[i] = it.Metrics
	}
	metrics := sc.deriver.Portfolio(sc.agg.WithItems(ms))
	score := scorer.Score(sc.model.BrandHealth, metrics)
	return &model.PortfolioResult{
		Metrics: metrics,
		Score:   score,
		Grade:   scorer.Grade(score.Score, sc.model.Grades),
	}
}
