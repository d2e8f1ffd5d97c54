package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/tabular"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rate(f float64) *float64 { return &f }

var current = model.Period{Start: day("2025-07-02"), End: day("2025-09-30"), Window: model.WindowCurrent}

func businessTable(rows ...[]string) *tabular.Table {
	return &tabular.Table{
		Name:   "business.csv",
		Header: []string{"(Child) ASIN", "Title", "Sessions - Total", "Units Ordered", "Ordered Product Sales", "Unit Session Percentage"},
		Rows:   rows,
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		percent bool
		want    model.Value
		wantErr bool
	}{
		{in: "$1,234.50", want: model.Of(1234.50)},
		{in: "£99", want: model.Of(99)},
		{in: "€1,000", want: model.Of(1000)},
		{in: "(12.50)", want: model.Of(-12.5)},
		{in: "15.5%", percent: true, want: model.Of(0.155)},
		{in: "20", percent: true, want: model.Of(0.2)},
		{in: "", want: model.Missing()},
		{in: "-", want: model.Missing()},
		{in: "--", want: model.Missing()},
		{in: "0", want: model.Of(0)},
		{in: "abc", wantErr: true},
		{in: "(-5)", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNumber(tt.in, tt.percent)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.IsMissing(), got.IsMissing())
			want, _ := tt.want.Float()
			f, _ := got.Float()
			assert.InDelta(t, want, f, 1e-9)
		})
	}
}

func TestParseDateAndMonth(t *testing.T) {
	d, err := ParseDate("09/30/2025")
	require.NoError(t, err)
	assert.Equal(t, day("2025-09-30"), d)

	m, err := ParseMonth("Mar 2025")
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-01"), m)

	m, err = ParseMonth("2025-03-17")
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-01"), m)

	_, err = ParseMonth("spring")
	assert.Error(t, err)
}

func TestNormalize_Business(t *testing.T) {
	tbl := businessTable(
		[]string{"B01", "Widget", "1,000", "100", "$2,500.00", "10%"},
		[]string{"B02", "Gadget", "500", "-", "$0.00", ""},
	)

	recs, stat, err := Normalize(Input{Report: model.ReportBusiness, Table: tbl, Period: current}, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 2, stat.Rows)
	assert.Equal(t, 0, stat.Dropped)
	assert.Equal(t, 2, stat.Records)

	r := recs[0]
	assert.Equal(t, model.Identifier("B01"), r.ID)
	assert.Equal(t, model.ReportBusiness, r.Source)
	assert.Equal(t, current, r.Period)
	assert.Equal(t, "Widget", r.Text[model.FieldTitle])
	assert.Equal(t, model.Of(2500), r.Fields[model.FieldOrderedRevenue])
	assert.Equal(t, model.Of(1000), r.Fields[model.FieldSessions])
	assert.InDelta(t, 0.10, r.Fields[model.FieldUnitSessionPct].Or(-1), 1e-9)

	// Dash is missing, not zero; a literal zero stays zero.
	_, hasUnits := recs[1].Fields[model.FieldUnitsOrdered]
	assert.False(t, hasUnits)
	assert.Equal(t, model.Of(0), recs[1].Fields[model.FieldOrderedRevenue])
}

func TestNormalize_HeaderFolding(t *testing.T) {
	tbl := &tabular.Table{
		Name:   "business.csv",
		Header: []string{"(child) asin", "SESSIONS  -  TOTAL", "units ordered", "Ordered Product Sales"},
		Rows:   [][]string{{"B01", "10", "1", "5"}},
	}
	recs, _, err := Normalize(Input{Report: model.ReportBusiness, Table: tbl, Period: current}, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.Of(10), recs[0].Fields[model.FieldSessions])
}

func TestNormalize_SchemaError(t *testing.T) {
	tbl := &tabular.Table{
		Name:   "business.csv",
		Header: []string{"(Child) ASIN", "Sessions - Total", "Ordered_Product_Sales_USD"},
		Rows:   [][]string{{"B01", "10", "5"}},
	}
	recs, stat, err := Normalize(Input{Report: model.ReportBusiness, Table: tbl}, Options{})
	require.Error(t, err)
	assert.Nil(t, recs)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.ElementsMatch(t, []string{"Ordered Product Sales", "Units Ordered"}, se.Missing)
	assert.Equal(t, "Ordered_Product_Sales_USD", se.Renamed["Ordered Product Sales"])
	assert.Contains(t, err.Error(), "business.csv")
	assert.Contains(t, err.Error(), "Units Ordered")
	assert.Equal(t, "schema", stat.ErrorKind)
}

func TestNormalize_DroppedRowsUnderThreshold(t *testing.T) {
	rows := [][]string{}
	for i := 0; i < 9; i++ {
		rows = append(rows, []string{"B0" + string(rune('A'+i)), "t", "10", "1", "$5", ""})
	}
	rows = append(rows, []string{"B0Z", "t", "ten", "1", "$5", ""})

	recs, stat, err := Normalize(Input{Report: model.ReportBusiness, Table: businessTable(rows...)}, Options{})
	require.NoError(t, err)
	assert.Len(t, recs, 9)
	assert.Equal(t, 1, stat.Dropped)
}

func TestNormalize_DataQualityError(t *testing.T) {
	tbl := businessTable(
		[]string{"B01", "t", "10", "1", "$5", ""},
		[]string{"B02", "t", "n/a?", "1", "$5", ""},
		[]string{"", "t", "10", "1", "$5", ""},
	)
	_, stat, err := Normalize(Input{Report: model.ReportBusiness, Table: tbl}, Options{MaxDropRate: rate(0.20)})
	require.Error(t, err)

	var dq *DataQualityError
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, 3, dq.Rows)
	assert.Equal(t, 2, dq.Dropped)
	assert.InDelta(t, 2.0/3, dq.DropRate(), 1e-9)
	assert.Len(t, dq.Samples, 2)
	assert.Contains(t, dq.Samples[1], "row 4: missing identifier")
	assert.Equal(t, "data_quality", stat.ErrorKind)
	assert.Equal(t, 0, stat.Records)
}

func TestNormalize_DropRateThreshold(t *testing.T) {
	rows := [][]string{}
	for i := 0; i < 9; i++ {
		rows = append(rows, []string{"B0" + string(rune('A'+i)), "t", "10", "1", "$5", ""})
	}
	rows = append(rows, []string{"B0Z", "t", "ten", "1", "$5", ""})

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "unset uses default", opts: Options{}},
		{name: "zero rejects any drop", opts: Options{MaxDropRate: rate(0)}, wantErr: true},
		{name: "explicit tolerance", opts: Options{MaxDropRate: rate(0.10)}},
		{name: "below observed rate", opts: Options{MaxDropRate: rate(0.05)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, stat, err := Normalize(Input{Report: model.ReportBusiness, Table: businessTable(rows...)}, tt.opts)
			assert.Equal(t, 1, stat.Dropped)
			if tt.wantErr {
				var dq *DataQualityError
				require.True(t, errors.As(err, &dq))
				assert.Empty(t, recs)
				return
			}
			require.NoError(t, err)
			assert.Len(t, recs, 9)
		})
	}
}

func TestNormalize_ZeroDropRateAcceptsCleanReport(t *testing.T) {
	tbl := businessTable([]string{"B01", "t", "10", "1", "$5", ""})
	recs, _, err := Normalize(Input{Report: model.ReportBusiness, Table: tbl}, Options{MaxDropRate: rate(0)})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestNormalize_SQPWithMetadataASIN(t *testing.T) {
	tbl := &tabular.Table{
		Name: "sqp.csv",
		Meta: map[string]string{"asin_or_product": "B0META"},
		Header: []string{
			"Search Query", "Search Query Volume",
			"Impressions: Total Count", "Impressions: ASIN Count",
			"Clicks: Total Count", "Clicks: ASIN Count",
			"Purchases: Total Count", "Purchases: ASIN Count",
		},
		Rows: [][]string{{"water bottle", "12,000", "100000", "5000", "4000", "300", "400", "40"}},
	}
	recs, _, err := Normalize(Input{Report: model.ReportSQP, Table: tbl, Period: current}, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.Identifier("B0META"), recs[0].ID)
	assert.Equal(t, "water bottle", recs[0].Query)
	assert.Equal(t, model.Of(12000), recs[0].Fields[model.FieldSearchVolume])
}

func TestNormalize_PPCWithoutASIN(t *testing.T) {
	tbl := &tabular.Table{
		Name:   "bulk.xlsx#SP Search Term Report",
		Header: []string{"Start Date", "End Date", "Customer Search Term", "Impressions", "Clicks", "Spend", "7 Day Total Sales", "7 Day Total Orders (#)"},
		Rows:   [][]string{{"07/02/2025", "09/30/2025", "steel bottle", "800", "40", "$500.00", "$0.00", "0"}},
	}
	recs, _, err := Normalize(Input{Report: model.ReportPPC, Table: tbl, Period: model.Period{Window: model.WindowCurrent}}, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.Identifier(""), recs[0].ID)
	assert.Equal(t, day("2025-07-02"), recs[0].Period.Start)
	assert.Equal(t, day("2025-09-30"), recs[0].Period.End)
	assert.Equal(t, model.WindowCurrent, recs[0].Period.Window)
	assert.Equal(t, model.Of(500), recs[0].Fields[model.FieldAdSpend])
}

func TestNormalize_InventorySumsAgedColumns(t *testing.T) {
	tbl := &tabular.Table{
		Name:   "inventory.csv",
		Header: []string{"sku", "asin", "available", "units-shipped-t30", "inv-age-0-to-90-days", "inv-age-91-to-180-days", "inv-age-181-to-270-days"},
		Rows:   [][]string{{"S1", "B01", "300", "60", "200", "70", "30"}},
	}
	recs, _, err := Normalize(Input{Report: model.ReportInventory, Table: tbl, Period: current}, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.Of(100), recs[0].Fields[model.FieldInvAge91Plus])
}

func TestNormalize_HistoryMonths(t *testing.T) {
	tbl := &tabular.Table{
		Name:   "history.csv",
		Header: []string{"ASIN", "Month", "Revenue"},
		Rows:   [][]string{{"B01", "2025-02", "$1,000"}},
	}
	recs, _, err := Normalize(Input{Report: model.ReportHistory, Table: tbl}, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.WindowMonth, recs[0].Period.Window)
	assert.Equal(t, day("2025-02-01"), recs[0].Period.Start)
	assert.Equal(t, day("2025-02-28"), recs[0].Period.End)
}

func TestNormalize_ReturnsUseRequestDate(t *testing.T) {
	tbl := &tabular.Table{
		Name:   "returns.tsv",
		Header: []string{"Order ID", "ASIN", "Return request date", "Return quantity", "Refunded amount"},
		Rows: [][]string{
			{"111-1", "B01", "2025-08-14", "1", "$24.99"},
			{"111-2", "B01", "2025-09-02", "2", ""},
		},
	}
	recs, _, err := Normalize(Input{Report: model.ReportReturns, Table: tbl, Period: current}, Options{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, day("2025-08-14"), recs[0].Period.Start)
	assert.Equal(t, recs[0].Period.Start, recs[0].Period.End)
	assert.Equal(t, model.Of(24.99), recs[0].Fields[model.FieldRefundAmount])
	assert.Equal(t, model.Of(2), recs[1].Fields[model.FieldUnitsReturned])
	_, refunded := recs[1].Fields[model.FieldRefundAmount]
	assert.False(t, refunded)
}

func TestNormalize_UnknownReport(t *testing.T) {
	_, _, err := Normalize(Input{Report: "settlement", Table: &tabular.Table{Name: "x"}}, Options{})
	assert.Error(t, err)
}
