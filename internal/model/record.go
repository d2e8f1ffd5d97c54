package model

import "sort"

// Identifier is an immutable catalog key (an ASIN, or a search query at the
// query level).
type Identifier string

// ReportType names a source report family.
type ReportType string

const (
	ReportBusiness  ReportType = "business"
	ReportSQP       ReportType = "sqp"
	ReportPPC       ReportType = "ppc"
	ReportInventory ReportType = "inventory"
	ReportFees      ReportType = "fees"
	ReportHistory   ReportType = "history"
	ReportReturns   ReportType = "returns"
)

// ReportTypes lists every supported report type.
var ReportTypes = []ReportType{ReportBusiness, ReportSQP, ReportPPC, ReportInventory, ReportFees, ReportHistory, ReportReturns}

// Level distinguishes identifier-level rows from query-level rows.
type Level string

const (
	LevelItem      Level = "item"
	LevelQuery     Level = "query"
	LevelPortfolio Level = "portfolio"
)

// RawRecord is one validated row of one source report.
type RawRecord struct {
	Source ReportType        `json:"source"`
	Report string            `json:"report"`
	ID     Identifier        `json:"id"`
	Query  string            `json:"query,omitempty"`
	Period Period            `json:"period"`
	Fields map[string]Value  `json:"fields"`
	Text   map[string]string `json:"text,omitempty"`
}

// FactRow is the union of all records sharing a (key, canonical window).
// Fields absent from every contributing source are missing.
type FactRow struct {
	Level              Level             `json:"level"`
	ID                 Identifier        `json:"id"`
	Window             Window            `json:"window"`
	Period             Period            `json:"period"`
	Fields             map[string]Value  `json:"fields"`
	Text               map[string]string `json:"text,omitempty"`
	Sources            []ReportType      `json:"sources"`
	Identifiers        []Identifier      `json:"identifiers,omitempty"`
	PeriodApproximated bool              `json:"period_approximated"`
}

// Get returns a field value, missing when absent.
func (f *FactRow) Get(name string) Value {
	if f == nil {
		return Missing()
	}
	v, ok := f.Fields[name]
	if !ok {
		return Missing()
	}
	return v
}

// HasSource reports whether a report type contributed to the row.
func (f *FactRow) HasSource(rt ReportType) bool {
	if f == nil {
		return false
	}
	for _, s := range f.Sources {
		if s == rt {
			return true
		}
	}
	return false
}

// MonthPoint is one month of sales history.
type MonthPoint struct {
	Month   string `json:"month"` // YYYY-MM
	Revenue Value  `json:"revenue"`
	Units   Value  `json:"units"`
}

// FactTable is the joined, read-only output of the joiner.
type FactTable struct {
	AsOf    string                      `json:"as_of"`
	Windows map[Window]Period           `json:"windows"`
	Items   []FactRow                   `json:"items"`
	Queries []FactRow                   `json:"queries"`
	History map[Identifier][]MonthPoint `json:"history,omitempty"`

	index map[factKey]int
}

type factKey struct {
	level  Level
	id     Identifier
	window Window
}

// Index builds the lookup used by Row. It must be called once before the
// table is shared.
func (t *FactTable) Index() {
	t.index = make(map[factKey]int, len(t.Items)+len(t.Queries))
	for i, r := range t.Items {
		t.index[factKey{LevelItem, r.ID, r.Window}] = i
	}
	for i, r := range t.Queries {
		t.index[factKey{LevelQuery, r.ID, r.Window}] = i
	}
}

// Row returns the fact row for a key, or nil.
func (t *FactTable) Row(level Level, id Identifier, w Window) *FactRow {
	i, ok := t.index[factKey{level, id, w}]
	if !ok {
		return nil
	}
	if level == LevelQuery {
		return &t.Queries[i]
	}
	return &t.Items[i]
}

// IDs returns the sorted distinct keys present at a level in any window.
func (t *FactTable) IDs(level Level) []Identifier {
	rows := t.Items
	if level == LevelQuery {
		rows = t.Queries
	}
	seen := make(map[Identifier]bool)
	var out []Identifier
	for _, r := range rows {
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
