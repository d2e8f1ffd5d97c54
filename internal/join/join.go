// Package join aligns normalized records from independent reports into one
// fact row per (identifier, canonical window), with outer-join semantics.
package join

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Options configures the joiner.
type Options struct {
	// AsOf anchors the canonical windows. Zero means the latest record end
	// date.
	AsOf    time.Time
	Windows config.WindowConfig
}

// Windows returns the canonical windows ending at asOf.
func Windows(asOf time.Time, wc config.WindowConfig) map[model.Window]model.Period {
	asOf = model.Day(asOf)
	cur := model.Period{
		Start:  asOf.AddDate(0, 0, -(wc.CurrentDays - 1)),
		End:    asOf,
		Window: model.WindowCurrent,
	}
	return map[model.Window]model.Period{
		model.WindowCurrent: cur,
		model.WindowPriorYear: {
			Start:  cur.Start.AddDate(0, 0, -wc.PriorYearShift),
			End:    cur.End.AddDate(0, 0, -wc.PriorYearShift),
			Window: model.WindowPriorYear,
		},
		model.WindowTrailing12M: {
			Start:  asOf.AddDate(0, 0, -(wc.TrailingDays - 1)),
			End:    asOf,
			Window: model.WindowTrailing12M,
		},
	}
}

// NormalizeQuery canonicalizes search query text for keying.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

type key struct {
	level  model.Level
	id     model.Identifier
	window model.Window
}

type builder struct {
	row   model.FactRow
	accs  map[string]*accumulator
	order []string
	srcs  map[model.ReportType]bool
	ids   map[model.Identifier]bool
}

// Join builds the fact table. Every identifier present in any record gets
// a fact row; fields no source supplied stay missing.
func Join(records []model.RawRecord, opts Options) (*model.FactTable, []model.Warning) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = latestEnd(records)
	}

	t := &model.FactTable{History: make(map[model.Identifier][]model.MonthPoint)}
	var windows map[model.Window]model.Period
	if !asOf.IsZero() {
		windows = Windows(asOf, opts.Windows)
		t.AsOf = model.Day(asOf).Format("2006-01-02")
		t.Windows = windows
	}

	builders := make(map[key]*builder)
	var keys []key
	var warnings []model.Warning
	warned := make(map[string]bool)
	history := make(map[model.Identifier]map[string]*model.MonthPoint)

	get := func(k key) *builder {
		b, ok := builders[k]
		if !ok {
			b = &builder{
				row: model.FactRow{
					Level:  k.level,
					ID:     k.id,
					Window: k.window,
					Period: windows[k.window],
				},
				accs: make(map[string]*accumulator),
				srcs: make(map[model.ReportType]bool),
				ids:  make(map[model.Identifier]bool),
			}
			builders[k] = b
			keys = append(keys, k)
		}
		return b
	}

	for _, rec := range records {
		if rec.Period.Window == model.WindowMonth {
			if rec.ID != "" {
				addHistory(history, rec)
			}
			continue
		}

		w, approx := bucket(rec.Period, windows, opts.Windows.ToleranceDays)
		if approx {
			msg := fmt.Sprintf("%s/%s/%s", rec.Report, rec.ID, w)
			if !warned[msg] {
				warned[msg] = true
				warnings = append(warnings, model.Warning{
					Kind:    model.WarnPeriodApproximated,
					Module:  "join",
					Subject: subject(rec),
					Reason: fmt.Sprintf("%s period %s..%s assigned to nearest %s window",
						rec.Report, fmtDay(rec.Period.Start), fmtDay(rec.Period.End), w),
				})
			}
		}

		if rec.ID != "" {
			b := get(key{model.LevelItem, rec.ID, w})
			b.add(rec, model.LevelItem, approx)
		}
		if rec.Query != "" {
			b := get(key{model.LevelQuery, model.Identifier(NormalizeQuery(rec.Query)), w})
			b.add(rec, model.LevelQuery, approx)
			if rec.ID != "" {
				b.ids[rec.ID] = true
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.id != b.id {
			return a.id < b.id
		}
		return windowRank(a.window) < windowRank(b.window)
	})
	for _, k := range keys {
		row := builders[k].finish()
		if k.level == model.LevelQuery {
			t.Queries = append(t.Queries, row)
		} else {
			t.Items = append(t.Items, row)
		}
	}

	for id, months := range history {
		series := make([]model.MonthPoint, 0, len(months))
		for _, p := range months {
			series = append(series, *p)
		}
		sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
		t.History[id] = series
	}

	t.Index()

	zap.L().Info("join: fact table built",
		zap.String("as_of", t.AsOf),
		zap.Int("items", len(t.Items)),
		zap.Int("queries", len(t.Queries)),
		zap.Int("history_series", len(t.History)),
		zap.Int("approximated", len(warnings)),
	)

	return t, warnings
}

func (b *builder) add(rec model.RawRecord, level model.Level, approx bool) {
	b.srcs[rec.Source] = true
	if approx {
		b.row.PeriodApproximated = true
	}
	for name, v := range rec.Fields {
		acc, ok := b.accs[name]
		if !ok {
			spec, _ := model.LookupField(name)
			agg := spec.ItemAgg
			if level == model.LevelQuery {
				agg = spec.QueryAgg
			}
			acc = &accumulator{agg: agg}
			b.accs[name] = acc
			b.order = append(b.order, name)
		}
		acc.add(v)
	}
	for name, s := range rec.Text {
		if b.row.Text == nil {
			b.row.Text = make(map[string]string)
		}
		if _, ok := b.row.Text[name]; !ok {
			b.row.Text[name] = s
		}
	}
}

func (b *builder) finish() model.FactRow {
	row := b.row
	row.Fields = make(map[string]model.Value, len(b.accs))
	for _, name := range b.order {
		row.Fields[name] = b.accs[name].value()
	}
	for _, rt := range model.ReportTypes {
		if b.srcs[rt] {
			row.Sources = append(row.Sources, rt)
		}
	}
	for id := range b.ids {
		row.Identifiers = append(row.Identifiers, id)
	}
	sort.Slice(row.Identifiers, func(i, j int) bool { return row.Identifiers[i] < row.Identifiers[j] })
	return row
}

// bucket assigns a period to a canonical window. A period maps cleanly to
// its declared window when both ends are within tolerance (or, for a
// single-day snapshot, when it falls inside the window). Otherwise it goes
// to the window with the smallest start plus end distance and is flagged.
func bucket(p model.Period, windows map[model.Window]model.Period, tol int) (model.Window, bool) {
	declared := p.Window
	if declared != model.WindowCurrent && declared != model.WindowPriorYear && declared != model.WindowTrailing12M {
		declared = model.WindowUnknown
	}

	if p.IsZero() || windows == nil {
		if declared == model.WindowUnknown {
			return model.WindowCurrent, true
		}
		return declared, false
	}

	candidates := model.CanonicalWindows
	if declared != model.WindowUnknown {
		candidates = append([]model.Window{declared}, model.CanonicalWindows...)
	}
	for _, w := range candidates {
		if fits(p, windows[w], tol) {
			return w, false
		}
	}

	best, bestDist := model.WindowCurrent, -1
	for _, w := range model.CanonicalWindows {
		cw := windows[w]
		d := absDays(p.Start.Sub(cw.Start)) + absDays(p.End.Sub(cw.End))
		if bestDist < 0 || d < bestDist {
			best, bestDist = w, d
		}
	}
	return best, true
}

func fits(p, w model.Period, tol int) bool {
	if p.Days() == 1 {
		lo := w.Start.AddDate(0, 0, -tol)
		hi := w.End.AddDate(0, 0, tol)
		return !p.End.Before(lo) && !p.End.After(hi)
	}
	return absDays(p.Start.Sub(w.Start)) <= tol && absDays(p.End.Sub(w.End)) <= tol
}

func absDays(d time.Duration) int {
	n := int(d.Hours() / 24)
	if n < 0 {
		return -n
	}
	return n
}

func windowRank(w model.Window) int {
	for i, cw := range model.CanonicalWindows {
		if cw == w {
			return i
		}
	}
	return len(model.CanonicalWindows)
}

func latestEnd(records []model.RawRecord) time.Time {
	var latest, latestMonth time.Time
	for _, r := range records {
		if r.Period.Window == model.WindowMonth {
			if r.Period.End.After(latestMonth) {
				latestMonth = r.Period.End
			}
			continue
		}
		if r.Period.End.After(latest) {
			latest = r.Period.End
		}
	}
	if latest.IsZero() {
		return latestMonth
	}
	return latest
}

func addHistory(h map[model.Identifier]map[string]*model.MonthPoint, rec model.RawRecord) {
	months, ok := h[rec.ID]
	if !ok {
		months = make(map[string]*model.MonthPoint)
		h[rec.ID] = months
	}
	m := rec.Period.Start.Format("2006-01")
	p, ok := months[m]
	if !ok {
		p = &model.MonthPoint{Month: m}
		months[m] = p
	}
	p.Revenue = addMissing(p.Revenue, rec.Fields[model.FieldMonthRevenue])
	p.Units = addMissing(p.Units, rec.Fields[model.FieldMonthUnits])
}

// addMissing sums two values where either may be missing; the result is
// missing only when both are.
func addMissing(a, b model.Value) model.Value {
	switch {
	case a.IsMissing():
		return b
	case b.IsMissing():
		return a
	}
	return a.Add(b)
}

func subject(rec model.RawRecord) string {
	if rec.ID != "" {
		return string(rec.ID)
	}
	return rec.Query
}

func fmtDay(t time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return t.Format("2006-01-02")
}
