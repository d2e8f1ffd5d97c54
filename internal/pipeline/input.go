package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/normalize"
	"github.com/Fraztahir/adsellix-audit/internal/tabular"
)

// ReportSpec names a report file and how its rows are dated.
type ReportSpec struct {
	Type   model.ReportType
	Period model.Period
	Path   string
}

// ParseReportSpec parses "type=path", "type:window=path" or
// "type:YYYY-MM-DD..YYYY-MM-DD=path". The window defaults to current.
func ParseReportSpec(s string) (ReportSpec, error) {
	head, path, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return ReportSpec{}, eris.Errorf("pipeline: report %q must look like type=path", s)
	}
	rt, p, err := ParseReportHead(head)
	if err != nil {
		return ReportSpec{}, err
	}
	return ReportSpec{Type: rt, Period: p, Path: strings.TrimSpace(path)}, nil
}

// ParseReportHead parses the "type[:period]" part of a report spec.
func ParseReportHead(head string) (model.ReportType, model.Period, error) {
	typ, period, _ := strings.Cut(head, ":")
	rt, err := ParseReportType(typ)
	if err != nil {
		return "", model.Period{}, err
	}
	p, err := ParsePeriod(period)
	if err != nil {
		return "", model.Period{}, eris.Wrapf(err, "pipeline: report %q", head)
	}
	return rt, p, nil
}

// ParseReportType maps a report name to its type.
func ParseReportType(s string) (model.ReportType, error) {
	rt := model.ReportType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := normalize.SchemaFor(rt); !ok {
		return "", eris.Errorf("pipeline: unknown report type %q", s)
	}
	return rt, nil
}

// ParsePeriod parses a window name or an inclusive date range. An empty
// string is the current window.
func ParsePeriod(s string) (model.Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Period{Window: model.WindowCurrent}, nil
	}
	for _, w := range model.CanonicalWindows {
		if s == string(w) {
			return model.Period{Window: w}, nil
		}
	}
	from, to, ok := strings.Cut(s, "..")
	if !ok {
		return model.Period{}, eris.Errorf("pipeline: period %q is neither a window nor a date range", s)
	}
	start, err := time.Parse("2006-01-02", strings.TrimSpace(from))
	if err != nil {
		return model.Period{}, eris.Wrapf(err, "pipeline: period start %q", from)
	}
	end, err := time.Parse("2006-01-02", strings.TrimSpace(to))
	if err != nil {
		return model.Period{}, eris.Wrapf(err, "pipeline: period end %q", to)
	}
	if end.Before(start) {
		return model.Period{}, eris.Errorf("pipeline: period %q ends before it starts", s)
	}
	return model.Period{Start: start, End: end}, nil
}

// LoadReports reads every report file concurrently, preserving order. An
// unreadable file fails the load; schema problems surface later, per
// report, during normalization.
func LoadReports(ctx context.Context, specs []ReportSpec, opts tabular.Options) ([]Report, error) {
	out := make([]Report, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, spec := range specs {
		g.Go(func() error {
			t, err := tabular.ReadFile(gctx, spec.Path, opts)
			if err != nil {
				return eris.Wrapf(err, "pipeline: load %s report", spec.Type)
			}
			out[i] = Report{Type: spec.Type, Table: t, Period: spec.Period}
			zap.L().Debug("pipeline: report loaded",
				zap.String("report", string(spec.Type)),
				zap.String("path", spec.Path),
				zap.Int("rows", len(t.Rows)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
