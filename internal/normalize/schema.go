package normalize

import (
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Column maps one or more header spellings onto a canonical field. Several
// columns may target the same field; their values are summed.
type Column struct {
	Field    string
	Aliases  []string
	Required bool
}

// Name returns the display name used in error messages.
func (c Column) Name() string {
	if len(c.Aliases) > 0 {
		return c.Aliases[0]
	}
	return c.Field
}

// Schema declares a report's minimal shape: its key column, optional query
// column, value columns and period-extraction rule. Start/End columns take
// precedence over the period declared for the table; Month marks a
// monthly-history report.
type Schema struct {
	Report model.ReportType
	Key    Column
	// KeyFromMeta allows the identifier to come from the table's metadata
	// line when the key column is absent.
	KeyFromMeta bool
	// KeyOptional allows records without an identifier (query-only rows).
	KeyOptional bool
	Query       *Column
	Columns     []Column
	Start       *Column
	End         *Column
	Month       *Column
}

var (
	startDate = &Column{Field: "start_date", Aliases: []string{"Start Date", "start-date", "Reporting Start Date"}}
	endDate   = &Column{Field: "end_date", Aliases: []string{"End Date", "end-date", "Reporting Date", "snapshot-date"}}
)

var schemas = map[model.ReportType]Schema{
	model.ReportBusiness: {
		Report:      model.ReportBusiness,
		Key:         Column{Field: "asin", Aliases: []string{"(Child) ASIN", "Child ASIN", "ASIN"}, Required: true},
		KeyFromMeta: true,
		Columns: []Column{
			{Field: model.FieldTitle, Aliases: []string{"Title", "Product Name"}},
			{Field: model.FieldParentASIN, Aliases: []string{"(Parent) ASIN", "Parent ASIN"}},
			{Field: model.FieldOrderedRevenue, Aliases: []string{"Ordered Product Sales", "Ordered Product Sales - Total"}, Required: true},
			{Field: model.FieldUnitsOrdered, Aliases: []string{"Units Ordered", "Units Ordered - Total"}, Required: true},
			{Field: model.FieldSessions, Aliases: []string{"Sessions - Total", "Sessions"}, Required: true},
			{Field: model.FieldPageViews, Aliases: []string{"Page Views - Total", "Page Views"}},
			{Field: model.FieldBuyBoxPct, Aliases: []string{"Featured Offer (Buy Box) Percentage", "Buy Box Percentage"}},
			{Field: model.FieldUnitSessionPct, Aliases: []string{"Unit Session Percentage", "Unit Session Percentage - Total"}},
			{Field: model.FieldRating, Aliases: []string{"Rating", "Average Rating", "Star Rating"}},
			{Field: model.FieldReviewsPerMonth, Aliases: []string{"Reviews per Month", "New Reviews", "Review Velocity"}},
		},
		Start: startDate,
		End:   endDate,
	},
	model.ReportSQP: {
		Report:      model.ReportSQP,
		Key:         Column{Field: "asin", Aliases: []string{"ASIN", "(Child) ASIN"}, Required: true},
		KeyFromMeta: true,
		Query:       &Column{Field: "query", Aliases: []string{"Search Query"}, Required: true},
		Columns: []Column{
			{Field: model.FieldSearchVolume, Aliases: []string{"Search Query Volume"}, Required: true},
			{Field: model.FieldMarketImpressions, Aliases: []string{"Impressions: Total Count"}, Required: true},
			{Field: model.FieldOwnImpressions, Aliases: []string{"Impressions: ASIN Count", "Impressions: Brand Count"}, Required: true},
			{Field: model.FieldMarketClicks, Aliases: []string{"Clicks: Total Count"}, Required: true},
			{Field: model.FieldOwnClicks, Aliases: []string{"Clicks: ASIN Count", "Clicks: Brand Count"}, Required: true},
			{Field: model.FieldMarketCartAdds, Aliases: []string{"Cart Adds: Total Count"}},
			{Field: model.FieldOwnCartAdds, Aliases: []string{"Cart Adds: ASIN Count", "Cart Adds: Brand Count"}},
			{Field: model.FieldMarketPurchases, Aliases: []string{"Purchases: Total Count"}, Required: true},
			{Field: model.FieldOwnPurchases, Aliases: []string{"Purchases: ASIN Count", "Purchases: Brand Count"}, Required: true},
			{Field: model.FieldOrganicRank, Aliases: []string{"Organic Rank", "Organic Position"}},
		},
		Start: startDate,
		End:   endDate,
	},
	model.ReportPPC: {
		Report:      model.ReportPPC,
		Key:         Column{Field: "asin", Aliases: []string{"Advertised ASIN", "ASIN"}},
		KeyOptional: true,
		Query:       &Column{Field: "query", Aliases: []string{"Customer Search Term", "Search Term"}, Required: true},
		Columns: []Column{
			{Field: model.FieldAdImpressions, Aliases: []string{"Impressions"}, Required: true},
			{Field: model.FieldAdClicks, Aliases: []string{"Clicks"}, Required: true},
			{Field: model.FieldAdSpend, Aliases: []string{"Spend", "Cost"}, Required: true},
			{Field: model.FieldAdSales, Aliases: []string{"7 Day Total Sales", "14 Day Total Sales", "Sales"}, Required: true},
			{Field: model.FieldAdOrders, Aliases: []string{"7 Day Total Orders (#)", "14 Day Total Orders (#)", "Orders"}, Required: true},
		},
		Start: startDate,
		End:   endDate,
	},
	model.ReportInventory: {
		Report: model.ReportInventory,
		Key:    Column{Field: "asin", Aliases: []string{"asin"}, Required: true},
		Columns: []Column{
			{Field: model.FieldTitle, Aliases: []string{"product-name"}},
			{Field: model.FieldUnitsOnHand, Aliases: []string{"available", "afn-fulfillable-quantity"}, Required: true},
			{Field: model.FieldUnitsShipped30, Aliases: []string{"units-shipped-t30"}, Required: true},
			{Field: model.FieldInvAge0To90, Aliases: []string{"inv-age-0-to-90-days"}},
			{Field: model.FieldInvAge91Plus, Aliases: []string{"inv-age-91-to-180-days"}},
			{Field: model.FieldInvAge91Plus, Aliases: []string{"inv-age-181-to-270-days"}},
			{Field: model.FieldInvAge91Plus, Aliases: []string{"inv-age-271-to-365-days"}},
			{Field: model.FieldInvAge91Plus, Aliases: []string{"inv-age-366-to-455-days"}},
			{Field: model.FieldInvAge91Plus, Aliases: []string{"inv-age-456-plus-days", "inv-age-365-plus-days"}},
			{Field: model.FieldStorageMonthly, Aliases: []string{"estimated-storage-cost-next-month"}},
			{Field: model.FieldPrice, Aliases: []string{"your-price"}},
		},
		End: endDate,
	},
	model.ReportFees: {
		Report: model.ReportFees,
		Key:    Column{Field: "asin", Aliases: []string{"asin"}, Required: true},
		Columns: []Column{
			{Field: model.FieldPrice, Aliases: []string{"your-price", "sales-price"}},
			{Field: model.FieldReferralPerUnit, Aliases: []string{"estimated-referral-fee-per-unit"}, Required: true},
			{Field: model.FieldFulfillmentPerUnit, Aliases: []string{"expected-domestic-fulfilment-fee-per-unit", "expected-fulfillment-fee-per-unit", "estimated-pick-pack-fee-per-unit"}, Required: true},
		},
	},
	// One row per return; the request date places it in a window and the
	// join sums refunds per ASIN.
	model.ReportReturns: {
		Report: model.ReportReturns,
		Key:    Column{Field: "asin", Aliases: []string{"ASIN"}, Required: true},
		Columns: []Column{
			{Field: model.FieldUnitsReturned, Aliases: []string{"Return quantity", "quantity"}, Required: true},
			{Field: model.FieldRefundAmount, Aliases: []string{"Refunded amount", "Refund amount"}},
		},
		End: &Column{Field: "return_date", Aliases: []string{"Return request date", "return-date", "Return date"}},
	},
	model.ReportHistory: {
		Report:      model.ReportHistory,
		Key:         Column{Field: "asin", Aliases: []string{"ASIN", "(Child) ASIN"}, Required: true},
		KeyFromMeta: true,
		Month:       &Column{Field: model.FieldMonth, Aliases: []string{"Month", "Date", "Period"}, Required: true},
		Columns: []Column{
			{Field: model.FieldMonthRevenue, Aliases: []string{"Revenue", "Ordered Product Sales", "Sales"}, Required: true},
			{Field: model.FieldMonthUnits, Aliases: []string{"Units", "Units Ordered"}},
		},
	},
}

// SchemaFor returns the built-in schema for a report type.
func SchemaFor(rt model.ReportType) (Schema, bool) {
	s, ok := schemas[rt]
	return s, ok
}
