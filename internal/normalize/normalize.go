// Package normalize validates raw report tables against their declared
// schemas and converts each valid row into a RawRecord.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/tabular"
)

// DefaultMaxDropRate is the share of rows that may fail coercion before a
// report is rejected.
const DefaultMaxDropRate = 0.20

const maxSamples = 3

// Input is one raw report table with its declared period.
type Input struct {
	Report model.ReportType
	Table  *tabular.Table
	// Period applies to rows that carry no dates of their own. Its Window
	// tag is the caller's declared canonical window.
	Period model.Period
}

// Options configures normalization.
type Options struct {
	// MaxDropRate is the tolerated share of dropped rows. Nil means
	// DefaultMaxDropRate; zero rejects a report on its first bad row.
	MaxDropRate *float64
}

type resolved struct {
	col Column
	idx int
}

// Normalize validates a report and returns one record per valid row. The
// returned stat is populated even when an error is returned.
func Normalize(in Input, opts Options) ([]model.RawRecord, model.ReportStat, error) {
	stat := model.ReportStat{Report: in.Report}
	if in.Table == nil {
		return nil, stat, eris.Errorf("normalize: %s report has no table", in.Report)
	}
	stat.Name = in.Table.Name
	stat.Rows = len(in.Table.Rows)

	schema, ok := SchemaFor(in.Report)
	if !ok {
		stat.ErrorKind = "schema"
		stat.Error = fmt.Sprintf("unknown report type %q", in.Report)
		return nil, stat, eris.Errorf("normalize: unknown report type %q", in.Report)
	}

	maxDrop := DefaultMaxDropRate
	if opts.MaxDropRate != nil {
		maxDrop = *opts.MaxDropRate
	}

	h := newHeaderIndex(in.Table.Header)
	defaultID := in.Table.DefaultIdentifier()

	var missing []string
	need := func(c *Column, required bool) (resolved, bool) {
		if c == nil {
			return resolved{idx: -1}, false
		}
		i := h.find(c.Aliases)
		if i < 0 {
			if required {
				missing = append(missing, c.Name())
			}
			return resolved{col: *c, idx: -1}, false
		}
		return resolved{col: *c, idx: i}, true
	}

	keyRequired := schema.Key.Required && !(schema.KeyFromMeta && defaultID != "")
	key, _ := need(&schema.Key, keyRequired)
	query, month := resolved{idx: -1}, resolved{idx: -1}
	if schema.Query != nil {
		query, _ = need(schema.Query, schema.Query.Required)
	}
	if schema.Month != nil {
		month, _ = need(schema.Month, schema.Month.Required)
	}
	start, _ := need(schema.Start, false)
	end, _ := need(schema.End, false)

	var cols []resolved
	for i := range schema.Columns {
		c := schema.Columns[i]
		if r, found := need(&c, c.Required); found {
			cols = append(cols, r)
		}
	}

	if len(missing) > 0 {
		err := &SchemaError{
			Report:  in.Report,
			Table:   in.Table.Name,
			Missing: missing,
			Renamed: h.suggest(schema, missing),
		}
		stat.ErrorKind = "schema"
		stat.Error = err.Error()
		return nil, stat, err
	}

	var (
		records []model.RawRecord
		samples []string
	)
	drop := func(row int, reason string) {
		stat.Dropped++
		if len(samples) < maxSamples {
			samples = append(samples, fmt.Sprintf("row %d: %s", row, reason))
		}
	}

	for n, row := range in.Table.Rows {
		rowNum := n + 2 // header is row 1
		rec := model.RawRecord{
			Source: in.Report,
			Report: in.Table.Name,
			Period: in.Period,
			Fields: make(map[string]model.Value, len(cols)),
		}

		id := cell(row, key.idx)
		if id == "" {
			id = defaultID
		}
		if id == "" && !schema.KeyOptional {
			drop(rowNum, "missing identifier")
			continue
		}
		rec.ID = model.Identifier(id)

		if schema.Query != nil {
			rec.Query = cell(row, query.idx)
			if rec.Query == "" && schema.Query.Required {
				drop(rowNum, "missing "+schema.Query.Name())
				continue
			}
		}

		period, err := rowPeriod(row, in.Period, month, start, end)
		if err != nil {
			drop(rowNum, err.Error())
			continue
		}
		rec.Period = period

		if reason := fillFields(&rec, row, cols); reason != "" {
			drop(rowNum, reason)
			continue
		}
		records = append(records, rec)
	}

	stat.Records = len(records)

	if stat.Rows > 0 && float64(stat.Dropped)/float64(stat.Rows) > maxDrop {
		err := &DataQualityError{
			Report:    in.Report,
			Table:     in.Table.Name,
			Rows:      stat.Rows,
			Dropped:   stat.Dropped,
			Threshold: maxDrop,
			Samples:   samples,
		}
		stat.Records = 0
		stat.ErrorKind = "data_quality"
		stat.Error = err.Error()
		return nil, stat, err
	}

	zap.L().Info("normalize: report complete",
		zap.String("report", string(in.Report)),
		zap.String("table", in.Table.Name),
		zap.Int("rows", stat.Rows),
		zap.Int("rows_dropped", stat.Dropped),
		zap.Int("records", stat.Records),
	)

	return records, stat, nil
}

func fillFields(rec *model.RawRecord, row []string, cols []resolved) string {
	for _, r := range cols {
		raw := cell(row, r.idx)
		spec, _ := model.LookupField(r.col.Field)
		switch spec.Kind {
		case model.KindText:
			if raw != "" {
				if rec.Text == nil {
					rec.Text = make(map[string]string)
				}
				if _, ok := rec.Text[r.col.Field]; !ok {
					rec.Text[r.col.Field] = raw
				}
			}
			continue
		case model.KindDate:
			continue
		}

		v, err := ParseNumber(raw, spec.Kind == model.KindPercent)
		if err != nil {
			return fmt.Sprintf("%s: %v", r.col.Name(), err)
		}
		if v.IsMissing() {
			continue
		}
		if prev, ok := rec.Fields[r.col.Field]; ok {
			v = prev.Add(v)
		}
		rec.Fields[r.col.Field] = v
	}
	return ""
}

func rowPeriod(row []string, declared model.Period, month, start, end resolved) (model.Period, error) {
	if month.idx >= 0 {
		m, err := ParseMonth(cell(row, month.idx))
		if err != nil {
			return model.Period{}, err
		}
		return model.Period{Start: m, End: m.AddDate(0, 1, -1), Window: model.WindowMonth}, nil
	}

	s, e := cell(row, start.idx), cell(row, end.idx)
	if s == "" && e == "" {
		return declared, nil
	}

	p := model.Period{Window: declared.Window}
	if e != "" {
		t, err := ParseDate(e)
		if err != nil {
			return model.Period{}, err
		}
		p.End = t
	}
	if s != "" {
		t, err := ParseDate(s)
		if err != nil {
			return model.Period{}, err
		}
		p.Start = t
	}
	switch {
	case p.Start.IsZero():
		p.Start = p.End
	case p.End.IsZero():
		p.End = p.Start
	}
	if p.End.Before(p.Start) {
		return model.Period{}, eris.Errorf("end date %s before start date %s", e, s)
	}
	return p, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// headerIndex matches schema aliases against a table header after case
// folding and whitespace collapsing.
type headerIndex struct {
	header []string
	folded map[string]int
	caser  cases.Caser
}

func newHeaderIndex(header []string) *headerIndex {
	h := &headerIndex{header: header, folded: make(map[string]int, len(header)), caser: cases.Fold()}
	for i, name := range header {
		k := h.key(name)
		if _, dup := h.folded[k]; !dup {
			h.folded[k] = i
		}
	}
	return h
}

func (h *headerIndex) key(s string) string {
	return h.caser.String(strings.Join(strings.Fields(s), " "))
}

func (h *headerIndex) find(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h.folded[h.key(a)]; ok {
			return i
		}
	}
	return -1
}

// suggest pairs each missing column with a header whose letters and digits
// contain the expected name, e.g. "Ordered_Product_Sales_USD".
func (h *headerIndex) suggest(schema Schema, missing []string) map[string]string {
	aliases := make(map[string][]string)
	all := append([]Column{schema.Key}, schema.Columns...)
	for _, c := range []*Column{schema.Query, schema.Month} {
		if c != nil {
			all = append(all, *c)
		}
	}
	for _, c := range all {
		aliases[c.Name()] = c.Aliases
	}

	out := make(map[string]string)
	for _, name := range missing {
		for _, a := range aliases[name] {
			want := alnum(a)
			if want == "" {
				continue
			}
			for _, hdr := range h.header {
				if got := alnum(hdr); got != "" && strings.Contains(got, want) {
					out[name] = hdr
					break
				}
			}
			if _, ok := out[name]; ok {
				break
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
