package model

// Kind is the coercion applied to a report column.
type Kind int

const (
	KindNumber Kind = iota
	KindCurrency
	KindPercent
	KindCount
	KindText
	KindDate
)

// Agg is how duplicate values of one field combine inside a fact row.
type Agg int

const (
	AggSum Agg = iota
	AggMax
	AggMin
	AggMean
	AggFirst
)

// FieldSpec describes a canonical fact field.
type FieldSpec struct {
	Name     string
	Kind     Kind
	ItemAgg  Agg
	QueryAgg Agg
}

// Canonical field names.
const (
	FieldTitle           = "title"
	FieldParentASIN      = "parent_asin"
	FieldOrderedRevenue  = "ordered_revenue"
	FieldUnitsOrdered    = "units_ordered"
	FieldSessions        = "sessions"
	FieldPageViews       = "page_views"
	FieldBuyBoxPct       = "buy_box_pct"
	FieldUnitSessionPct  = "unit_session_pct"
	FieldRating          = "rating"
	FieldReviewsPerMonth = "reviews_per_month"

	FieldSearchVolume      = "search_volume"
	FieldMarketImpressions = "total_market_impressions"
	FieldOwnImpressions    = "own_impressions"
	FieldMarketClicks      = "total_market_clicks"
	FieldOwnClicks         = "own_clicks"
	FieldMarketCartAdds    = "total_market_cart_adds"
	FieldOwnCartAdds       = "own_cart_adds"
	FieldMarketPurchases   = "total_market_purchases"
	FieldOwnPurchases      = "own_purchases"
	FieldOrganicRank       = "organic_rank"

	FieldAdImpressions = "ad_impressions"
	FieldAdClicks      = "ad_clicks"
	FieldAdSpend       = "ad_spend"
	FieldAdSales       = "ad_sales"
	FieldAdOrders      = "ad_orders"

	FieldUnitsOnHand    = "units_on_hand"
	FieldUnitsShipped30 = "units_shipped_t30"
	FieldInvAge0To90    = "inv_age_0_90"
	FieldInvAge91Plus   = "inv_age_91_plus"
	FieldStorageMonthly = "storage_cost_monthly"

	FieldPrice              = "your_price"
	FieldReferralPerUnit    = "referral_fee_per_unit"
	FieldFulfillmentPerUnit = "fulfillment_fee_per_unit"

	FieldUnitsReturned = "units_returned"
	FieldRefundAmount  = "refund_amount"

	FieldMonth        = "month"
	FieldMonthRevenue = "revenue"
	FieldMonthUnits   = "units"
)

var fieldRegistry = map[string]FieldSpec{}

func register(specs ...FieldSpec) {
	for _, s := range specs {
		fieldRegistry[s.Name] = s
	}
}

func init() {
	register(
		FieldSpec{Name: FieldTitle, Kind: KindText, ItemAgg: AggFirst, QueryAgg: AggFirst},
		FieldSpec{Name: FieldParentASIN, Kind: KindText, ItemAgg: AggFirst, QueryAgg: AggFirst},
		FieldSpec{Name: FieldOrderedRevenue, Kind: KindCurrency},
		FieldSpec{Name: FieldUnitsOrdered, Kind: KindCount},
		FieldSpec{Name: FieldSessions, Kind: KindCount},
		FieldSpec{Name: FieldPageViews, Kind: KindCount},
		FieldSpec{Name: FieldBuyBoxPct, Kind: KindPercent, ItemAgg: AggMean, QueryAgg: AggMean},
		FieldSpec{Name: FieldUnitSessionPct, Kind: KindPercent, ItemAgg: AggMean, QueryAgg: AggMean},
		FieldSpec{Name: FieldRating, Kind: KindNumber, ItemAgg: AggMean, QueryAgg: AggMean},
		FieldSpec{Name: FieldReviewsPerMonth, Kind: KindNumber, ItemAgg: AggMean, QueryAgg: AggMean},

		// Market totals repeat on every ASIN row of a query, so the query
		// level keeps one copy while the item level sums across queries.
		FieldSpec{Name: FieldSearchVolume, Kind: KindCount, ItemAgg: AggSum, QueryAgg: AggMax},
		FieldSpec{Name: FieldMarketImpressions, Kind: KindCount, ItemAgg: AggSum, QueryAgg: AggMax},
		FieldSpec{Name: FieldOwnImpressions, Kind: KindCount},
		FieldSpec{Name: FieldMarketClicks, Kind: KindCount, ItemAgg: AggSum, QueryAgg: AggMax},
		FieldSpec{Name: FieldOwnClicks, Kind: KindCount},
		FieldSpec{Name: FieldMarketCartAdds, Kind: KindCount, ItemAgg: AggSum, QueryAgg: AggMax},
		FieldSpec{Name: FieldOwnCartAdds, Kind: KindCount},
		FieldSpec{Name: FieldMarketPurchases, Kind: KindCount, ItemAgg: AggSum, QueryAgg: AggMax},
		FieldSpec{Name: FieldOwnPurchases, Kind: KindCount},
		FieldSpec{Name: FieldOrganicRank, Kind: KindNumber, ItemAgg: AggMin, QueryAgg: AggMin},

		FieldSpec{Name: FieldAdImpressions, Kind: KindCount},
		FieldSpec{Name: FieldAdClicks, Kind: KindCount},
		FieldSpec{Name: FieldAdSpend, Kind: KindCurrency},
		FieldSpec{Name: FieldAdSales, Kind: KindCurrency},
		FieldSpec{Name: FieldAdOrders, Kind: KindCount},

		FieldSpec{Name: FieldUnitsOnHand, Kind: KindCount},
		FieldSpec{Name: FieldUnitsShipped30, Kind: KindCount},
		FieldSpec{Name: FieldInvAge0To90, Kind: KindCount},
		FieldSpec{Name: FieldInvAge91Plus, Kind: KindCount},
		FieldSpec{Name: FieldStorageMonthly, Kind: KindCurrency},

		FieldSpec{Name: FieldPrice, Kind: KindCurrency, ItemAgg: AggMean, QueryAgg: AggMean},
		FieldSpec{Name: FieldReferralPerUnit, Kind: KindCurrency, ItemAgg: AggMean, QueryAgg: AggMean},
		FieldSpec{Name: FieldFulfillmentPerUnit, Kind: KindCurrency, ItemAgg: AggMean, QueryAgg: AggMean},

		FieldSpec{Name: FieldUnitsReturned, Kind: KindCount},
		FieldSpec{Name: FieldRefundAmount, Kind: KindCurrency},

		FieldSpec{Name: FieldMonth, Kind: KindDate, ItemAgg: AggFirst, QueryAgg: AggFirst},
		FieldSpec{Name: FieldMonthRevenue, Kind: KindCurrency},
		FieldSpec{Name: FieldMonthUnits, Kind: KindCount},
	)
}

// LookupField returns the spec for a canonical field.
func LookupField(name string) (FieldSpec, bool) {
	s, ok := fieldRegistry[name]
	return s, ok
}
