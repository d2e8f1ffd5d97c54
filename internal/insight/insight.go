// Package insight attaches generated prose to ranked recommendations. The
// prose is opaque: nothing in the scoring core reads it.
package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Request carries computed metrics for one subject. Raw report rows are
// never included.
type Request struct {
	Subject string
	Action  string
	Reason  string
	Metrics map[string]model.Value
}

// Summarizer turns computed metrics into prose.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Stub is an offline Summarizer that renders the request as a sentence.
type Stub struct{}

// Summarize implements Summarizer.
func (Stub) Summarize(_ context.Context, req Request) (string, error) {
	return fmt.Sprintf("%s: %s. %s (%s)", req.Subject, req.Action, req.Reason, formatMetrics(req.Metrics)), nil
}

// Enrich fills Rationale.Insight for the top max recommendations and the
// executive summary. Summarizer failures are logged and leave the field
// empty.
func Enrich(ctx context.Context, s Summarizer, res *model.Result, max, workers int) {
	if s == nil || res == nil {
		return
	}
	n := len(res.Recommendations)
	if max >= 0 && max < n {
		n = max
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		rec := &res.Recommendations[i]
		g.Go(func() error {
			text, err := s.Summarize(gctx, Request{
				Subject: rec.Subject,
				Action:  rec.Action,
				Reason:  rec.Rationale.Reason,
				Metrics: rec.Rationale.Metrics,
			})
			if err != nil {
				zap.L().Warn("insight: summarize failed",
					zap.String("subject", rec.Subject),
					zap.Error(err),
				)
				return nil
			}
			rec.Rationale.Insight = text
			return nil
		})
	}
	_ = g.Wait()

	text, err := s.Summarize(ctx, executiveRequest(res))
	if err != nil {
		zap.L().Warn("insight: executive summary failed", zap.Error(err))
		return
	}
	res.Summary.ExecutiveSummary = text
}

func executiveRequest(res *model.Result) Request {
	req := Request{
		Subject: "portfolio",
		Action:  "summarize",
		Metrics: map[string]model.Value{"wasted_spend": res.Summary.WastedSpend},
	}
	if res.Portfolio != nil {
		req.Reason = "brand health grade " + res.Portfolio.Grade
		req.Metrics["brand_health_score"] = model.Of(res.Portfolio.Score.Score)
		for k, d := range res.Portfolio.Metrics {
			req.Metrics[k] = d.Value
		}
	}
	if a := res.Summary.Advertising; a != nil {
		req.Metrics["ad_spend"] = a.Spend
		req.Metrics["ad_sales"] = a.Sales
		req.Metrics["ad_acos"] = a.ACoS
	}
	for d, c := range res.Summary.Decisions {
		req.Metrics["items_"+string(d)] = model.Of(float64(c))
	}
	for st, c := range res.Summary.Strategies {
		req.Metrics["queries_"+string(st)] = model.Of(float64(c))
	}
	return req
}

// formatMetrics renders metrics sorted by name; missing values print as
// "n/a".
func formatMetrics(m map[string]model.Value) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		if v, ok := m[k].Float(); ok {
			parts[i] = fmt.Sprintf("%s=%.4g", k, v)
		} else {
			parts[i] = k + "=n/a"
		}
	}
	return strings.Join(parts, ", ")
}
