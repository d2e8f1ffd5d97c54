// Package pipeline runs an audit: normalize, join, reduce, then score and
// classify every identifier and query in parallel, and finally rank the
// recommendations.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Fraztahir/adsellix-audit/internal/classify"
	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/derive"
	"github.com/Fraztahir/adsellix-audit/internal/insight"
	"github.com/Fraztahir/adsellix-audit/internal/join"
	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/monitoring"
	"github.com/Fraztahir/adsellix-audit/internal/normalize"
	"github.com/Fraztahir/adsellix-audit/internal/recommend"
	"github.com/Fraztahir/adsellix-audit/internal/store"
)

// Options tunes a pipeline.
type Options struct {
	Workers     int
	Timeout     time.Duration
	// MaxDropRate overrides normalize.DefaultMaxDropRate when set.
	MaxDropRate *float64
	// Horizon overrides the model's forecast horizon when positive.
	Horizon    int
	InsightMax int
}

// OptionsFrom builds pipeline options from application config.
func OptionsFrom(cfg *config.Config) Options {
	maxDrop := cfg.Pipeline.MaxDropRate
	return Options{
		Workers:     cfg.Pipeline.Workers,
		Timeout:     time.Duration(cfg.Pipeline.TimeoutSecs) * time.Second,
		MaxDropRate: &maxDrop,
		Horizon:     cfg.Pipeline.ForecastHorizon,
		InsightMax:  cfg.Insight.MaxRecommendations,
	}
}

// Pipeline orchestrates audit runs. It holds no per-run state and may run
// several audits concurrently.
type Pipeline struct {
	opts       Options
	summarizer insight.Summarizer
	store      store.Store
	metrics    *monitoring.Metrics
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithSummarizer attaches generated prose to the top recommendations.
func WithSummarizer(s insight.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// WithStore records runs executed through Execute.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithMetrics records stage timings and run outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline.
func New(opts Options, fns ...Option) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	p := &Pipeline{opts: opts}
	for _, fn := range fns {
		fn(p)
	}
	return p
}

// Run executes one audit. An invalid model fails with *config.ConfigError
// before any report is read. When the run timeout fires, Run returns the
// stages completed so far together with a *PartialResultsError.
func (p *Pipeline) Run(ctx context.Context, rc RunContext) (res *model.Result, err error) {
	m := rc.Model
	if p.opts.Horizon > 0 {
		m.Forecast.Horizon = p.opts.Horizon
	}
	if err := config.ValidateModel(m); err != nil {
		p.metrics.RecordRun(model.RunStatusFailed, nil)
		return nil, err
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	log := zap.L().With(zap.Int("reports", len(rc.Reports)), zap.String("as_of", rc.AsOfString()))
	log.Info("pipeline: starting audit")
	start := time.Now()

	res = &model.Result{Items: []model.ItemResult{}, Queries: []model.QueryResult{}, Recommendations: []model.Recommendation{}}
	defer func() {
		status := Status(res, err)
		p.metrics.RecordRun(status, res)
		log.Info("pipeline: audit finished",
			zap.String("status", string(status)),
			zap.Int("items", len(res.Items)),
			zap.Int("queries", len(res.Queries)),
			zap.Int("recommendations", len(res.Recommendations)),
			zap.Int("warnings", len(res.Warnings)),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	// Phase 1: normalize every report independently.
	stop := p.timer(StageNormalize)
	var records []model.RawRecord
	for i, r := range rc.Reports {
		if cerr := ctx.Err(); cerr != nil {
			return res, &PartialResultsError{Stage: StageNormalize, Completed: i, Total: len(rc.Reports), Err: cerr}
		}
		recs, stat, nerr := normalize.Normalize(
			normalize.Input{Report: r.Type, Table: r.Table, Period: r.Period},
			normalize.Options{MaxDropRate: p.opts.MaxDropRate},
		)
		res.Reports = append(res.Reports, stat)
		p.metrics.RecordReport(stat)
		if nerr != nil {
			log.Warn("pipeline: report failed, dependent metrics degrade",
				zap.String("report", string(r.Type)),
				zap.String("name", stat.Name),
				zap.Error(nerr),
			)
			res.Warnings = append(res.Warnings, model.Warning{
				Kind:    model.WarnReportFailed,
				Module:  StageNormalize,
				Subject: reportSubject(stat),
				Reason:  reportReason(stat, nerr),
			})
			continue
		}
		records = append(records, recs...)
	}
	stop()

	// Phase 2: join into the fact table.
	stop = p.timer(StageJoin)
	table, warns := join.Join(records, join.Options{AsOf: rc.AsOf, Windows: m.Windows})
	res.AsOf = table.AsOf
	res.Windows = table.Windows
	res.Warnings = append(res.Warnings, warns...)
	stop()

	// Phase 3: market and portfolio reductions. Every per-subject task reads
	// them; none writes.
	stop = p.timer(StageReduce)
	agg := derive.Reduce(table)
	stop()

	d := derive.New(m)
	sc := &scope{table: table, agg: agg, deriver: d, model: m, manual: rc.Manual}

	if len(table.History) == 0 && len(table.Items) > 0 {
		res.Warnings = append(res.Warnings, model.Warning{
			Kind:   model.WarnInsufficientData,
			Module: "forecast",
			Reason: "no monthly sales history supplied; seasonality and forecasts unavailable",
		})
	}

	// Phase 4: per-identifier scoring and classification.
	stop = p.timer(StageItems)
	items, itemWarns, err := p.scoreItems(ctx, sc)
	res.Items = items
	res.Warnings = append(res.Warnings, itemWarns...)
	stop()
	if err != nil {
		return res, err
	}

	// Phase 5: per-query scoring and classification.
	stop = p.timer(StageQueries)
	queries, err := p.scoreQueries(ctx, sc)
	res.Queries = queries
	stop()
	if err != nil {
		return res, err
	}

	// Phase 6: brand health and parent families over the scored identifiers.
	stop = p.timer(StagePortfolio)
	res.Portfolio = portfolio(sc, items)
	res.Families = classify.Families(items, m.Hierarchy.HeroCount)
	stop()

	// Phase 7: rank recommendations.
	stop = p.timer(StageRecommend)
	res.Recommendations = recommend.Assemble(items, queries, recommend.OptionsFrom(m))
	res.Summary = recommend.Summarize(items, queries, m.Advertising)
	stop()

	// Phase 8: optional prose.
	if p.summarizer != nil {
		stop = p.timer(StageInsight)
		insight.Enrich(ctx, p.summarizer, res, p.opts.InsightMax, p.opts.Workers)
		stop()
		if cerr := ctx.Err(); cerr != nil {
			log.Warn("pipeline: insight cut short by run timeout", zap.Error(cerr))
		}
	}

	return res, nil
}

// Execute runs an audit and records it in the configured store. Without a
// store the returned run carries no ID.
func (p *Pipeline) Execute(ctx context.Context, rc RunContext) (*model.Run, error) {
	run := &model.Run{AsOf: rc.AsOfString(), Status: model.RunStatusRunning}
	if p.store != nil {
		created, err := p.store.CreateRun(ctx, run.AsOf)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		run = created
	}

	res, err := p.Run(ctx, rc)
	run.Result = res
	run.Status = Status(res, err)
	if err != nil {
		run.Error = err.Error()
	}
	if res != nil && run.AsOf == "" {
		run.AsOf = res.AsOf
	}

	if p.store != nil {
		// The run context may already be done; the outcome must still land.
		fctx := context.WithoutCancel(ctx)
		if ferr := p.store.FinishRun(fctx, run.ID, run.Status, res, run.Error); ferr != nil {
			zap.L().Error("pipeline: failed to record run", zap.String("run_id", run.ID), zap.Error(ferr))
		}
	}
	return run, err
}

// timer starts timing a stage and returns the function that ends it.
func (p *Pipeline) timer(stage string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.metrics.ObserveStage(stage, d)
		zap.L().Debug("pipeline: stage complete",
			zap.String("stage", stage),
			zap.Int64("duration_ms", d.Milliseconds()),
		)
	}
}

// fanOut runs fn(i) for i in [0, n) on at most workers goroutines. Each
// call writes only its own slot, so no locking is needed. Once ctx is done
// no new work starts; done reports which indexes finished.
func fanOut(ctx context.Context, n, workers int, fn func(i int)) (done []bool, err error) {
	done = make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			done[i] = true
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return done, err
}

// completed keeps the slots fanOut finished, preserving order.
func completed[T any](all []T, done []bool) []T {
	out := make([]T, 0, len(all))
	for i, v := range all {
		if done[i] {
			out = append(out, v)
		}
	}
	return out
}

func reportSubject(stat model.ReportStat) string {
	if stat.Name != "" {
		return stat.Name
	}
	return string(stat.Report)
}

func reportReason(stat model.ReportStat, err error) string {
	if stat.Error != "" {
		return fmt.Sprintf("%s: %s", stat.ErrorKind, stat.Error)
	}
	return err.Error()
}

func sortedIdentifiers(set map[model.Identifier]bool) []model.Identifier {
	if len(set) == 0 {
		return nil
	}
	out := make([]model.Identifier, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
