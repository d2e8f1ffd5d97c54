package derive

import (
	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Metric flags.
const (
	FlagListingIssue = "listing_issue"
	FlagStaleOrNew   = "stale_or_new"
	FlagLowStock     = "low_stock"
	FlagExcess       = "excess"
	FlagAging        = "aging"
	FlagHealthy      = "healthy"
	FlagOverTarget   = "over_break_even"
)

// Item metric names read by scoring and classification.
const (
	MetricNetRevenue          = "net_revenue"
	MetricUnits               = "units"
	MetricContributionMargin  = "contribution_margin"
	MetricContributionPct     = "contribution_margin_pct"
	MetricBreakEvenACoS       = "break_even_acos"
	MetricRevenueGrowth       = "revenue_yoy_growth"
	MetricMarketShareChange   = "market_share_change"
	MetricDaysOfSupply        = "days_of_supply"
	MetricHealthyInventory    = "healthy_inventory"
	MetricConversionRate      = "conversion_rate"
	MetricPurchaseShare       = "purchase_share"
	MetricTACoS               = "tacos"
	MetricAdSpend             = "ad_cost"
	MetricStrategicFit        = "strategic_fit_score"
	MetricHealthyInventoryPct = "healthy_inventory_pct"
)

// ItemDerivations returns the identifier-level derivation list.
func ItemDerivations(m config.ModelConfig) []Derivation {
	inv := m.Inventory
	return []Derivation{
		{Name: MetricNetRevenue, Requires: []string{model.FieldOrderedRevenue}, Fn: pass(model.FieldOrderedRevenue)},
		{Name: MetricUnits, Requires: []string{model.FieldUnitsOrdered}, Fn: pass(model.FieldUnitsOrdered)},

		// Shares and funnel gaps from the search query performance report.
		{Name: "impression_share", Requires: []string{model.FieldOwnImpressions, model.FieldMarketImpressions},
			Fn: ratio(model.FieldOwnImpressions, model.FieldMarketImpressions)},
		{Name: "click_share", Requires: []string{model.FieldOwnClicks, model.FieldMarketClicks},
			Fn: ratio(model.FieldOwnClicks, model.FieldMarketClicks)},
		{Name: "cart_add_share", Requires: []string{model.FieldOwnCartAdds, model.FieldMarketCartAdds},
			Fn: ratio(model.FieldOwnCartAdds, model.FieldMarketCartAdds)},
		{Name: MetricPurchaseShare, Requires: []string{model.FieldOwnPurchases, model.FieldMarketPurchases},
			Fn: ratio(model.FieldOwnPurchases, model.FieldMarketPurchases)},
		{Name: "conversion_gap", Requires: []string{"click_share", MetricPurchaseShare},
			Fn:    func(g Getter) model.Value { return g("click_share").Sub(g(MetricPurchaseShare)) },
			Flags: gapFlags},

		{Name: MetricConversionRate, Requires: []string{"units", model.FieldSessions}, Fn: ratio("units", model.FieldSessions)},
		{Name: "conversion_rate_index", Requires: []string{MetricConversionRate, "agg.conversion_rate"},
			Fn: ratio(MetricConversionRate, "agg.conversion_rate")},

		// Margin waterfall.
		{Name: "unit_cost", Optional: []string{"manual.landed_cost", "manual.cogs"},
			Fn: func(g Getter) model.Value { return first(g("manual.landed_cost"), g("manual.cogs")) }},
		{Name: "cogs", Requires: []string{"units", "unit_cost"},
			Fn: func(g Getter) model.Value { return g("units").Mul(g("unit_cost")) }},
		{Name: "fulfillment_fee_per_unit", Optional: []string{model.FieldFulfillmentPerUnit, "manual.fulfillment_fee"},
			Fn: func(g Getter) model.Value {
				return first(g(model.FieldFulfillmentPerUnit), g("manual.fulfillment_fee"))
			}},
		{Name: "fulfillment_fees", Requires: []string{"units", "fulfillment_fee_per_unit"},
			Fn: func(g Getter) model.Value { return g("units").Mul(g("fulfillment_fee_per_unit")) }},
		{Name: "referral_fee", Optional: []string{model.FieldReferralPerUnit, "manual.referral_fee_pct"},
			Fn: func(g Getter) model.Value {
				return first(
					g("units").Mul(g(model.FieldReferralPerUnit)),
					g(MetricNetRevenue).Mul(g("manual.referral_fee_pct")),
				)
			}},
		{Name: "storage_fees", Requires: []string{model.FieldStorageMonthly},
			Fn: func(g Getter) model.Value { return g(model.FieldStorageMonthly).Scale(inv.StorageMonths) }},
		{Name: MetricAdSpend, Requires: []string{model.FieldAdSpend}, Fn: pass(model.FieldAdSpend)},
		// Refunds from the returns report win over the estimated return rate.
		{Name: "returns_cost", Optional: []string{model.FieldRefundAmount, "manual.return_rate"},
			Fn: func(g Getter) model.Value {
				return first(
					g(model.FieldRefundAmount),
					g(MetricNetRevenue).Mul(g("manual.return_rate")),
				)
			}},
		{Name: "return_rate", Requires: []string{model.FieldUnitsReturned, "units"}, Fn: ratio(model.FieldUnitsReturned, "units")},
		{Name: "gross_margin", Requires: []string{MetricNetRevenue, "cogs"},
			Fn: func(g Getter) model.Value { return g(MetricNetRevenue).Sub(g("cogs")) }},
		{Name: "gross_margin_pct", Requires: []string{"gross_margin", MetricNetRevenue},
			Fn: overRevenue("gross_margin", MetricNetRevenue)},
		// Every cost line is required: an absent cost never counts as zero.
		{Name: "contribution_margin_before_ads",
			Requires: []string{MetricNetRevenue, "cogs", "fulfillment_fees", "referral_fee", "storage_fees", "returns_cost"},
			Fn: func(g Getter) model.Value {
				return g(MetricNetRevenue).
					Sub(g("cogs")).
					Sub(g("fulfillment_fees")).
					Sub(g("referral_fee")).
					Sub(g("storage_fees")).
					Sub(g("returns_cost"))
			}},
		{Name: MetricContributionMargin, Requires: []string{"contribution_margin_before_ads", MetricAdSpend},
			Fn: func(g Getter) model.Value {
				return g("contribution_margin_before_ads").Sub(g(MetricAdSpend))
			}},
		{Name: MetricContributionPct, Requires: []string{MetricContributionMargin, MetricNetRevenue},
			Fn: overRevenue(MetricContributionMargin, MetricNetRevenue)},
		{Name: "contribution_margin_pct_before_ads", Requires: []string{"contribution_margin_before_ads", MetricNetRevenue},
			Fn: overRevenue("contribution_margin_before_ads", MetricNetRevenue)},
		{Name: "target_margin_gap", Requires: []string{MetricContributionPct, "manual.target_margin"},
			Fn: func(g Getter) model.Value { return g(MetricContributionPct).Sub(g("manual.target_margin")) }},

		// Advertising efficiency.
		{Name: "acos", Requires: []string{model.FieldAdSpend, model.FieldAdSales}, Fn: ratio(model.FieldAdSpend, model.FieldAdSales)},
		{Name: "roas", Requires: []string{model.FieldAdSales, model.FieldAdSpend}, Fn: ratio(model.FieldAdSales, model.FieldAdSpend)},
		{Name: MetricTACoS, Requires: []string{model.FieldAdSpend, MetricNetRevenue}, Fn: overRevenue(model.FieldAdSpend, MetricNetRevenue)},
		{Name: "ctr", Requires: []string{model.FieldAdClicks, model.FieldAdImpressions}, Fn: ratio(model.FieldAdClicks, model.FieldAdImpressions)},
		{Name: "cpc", Requires: []string{model.FieldAdSpend, model.FieldAdClicks}, Fn: ratio(model.FieldAdSpend, model.FieldAdClicks)},
		{Name: MetricBreakEvenACoS, Requires: []string{"contribution_margin_pct_before_ads"}, Fn: pass("contribution_margin_pct_before_ads")},
		{Name: "acos_headroom", Requires: []string{MetricBreakEvenACoS, "acos"},
			Fn: func(g Getter) model.Value { return g(MetricBreakEvenACoS).Sub(g("acos")) },
			Flags: func(v model.Value, _ Getter) []string {
				if f, ok := v.Float(); ok && f < 0 {
					return []string{FlagOverTarget}
				}
				return nil
			}},

		// Inventory.
		{Name: "daily_velocity", Requires: []string{model.FieldUnitsShipped30},
			Fn: func(g Getter) model.Value { return g(model.FieldUnitsShipped30).Scale(1.0 / 30) }},
		{Name: "aged_inventory_pct", Requires: []string{model.FieldInvAge0To90, model.FieldInvAge91Plus},
			Fn: func(g Getter) model.Value {
				return g(model.FieldInvAge91Plus).Div(g(model.FieldInvAge0To90).Add(g(model.FieldInvAge91Plus)))
			}},
		{Name: MetricDaysOfSupply, Requires: []string{model.FieldUnitsOnHand, "daily_velocity"},
			Fn: ratio(model.FieldUnitsOnHand, "daily_velocity"),
			Flags: func(v model.Value, g Getter) []string {
				if v.IsMissing() && g("daily_velocity").Or(-1) == 0 {
					return []string{FlagStaleOrNew}
				}
				return nil
			}},
		{Name: "sell_through", Requires: []string{model.FieldUnitsShipped30, model.FieldUnitsOnHand},
			Fn: func(g Getter) model.Value {
				return g(model.FieldUnitsShipped30).Div(g(model.FieldUnitsOnHand).Add(g(model.FieldUnitsShipped30)))
			}},
		{Name: MetricHealthyInventory, Requires: []string{MetricDaysOfSupply}, Optional: []string{"aged_inventory_pct"},
			Fn: func(g Getter) model.Value {
				if inventoryHealth(g, inv) == FlagHealthy {
					return model.Of(1)
				}
				return model.Of(0)
			},
			Flags: func(_ model.Value, g Getter) []string { return []string{inventoryHealth(g, inv)} }},

		// Growth against the prior-year window.
		{Name: MetricRevenueGrowth, Requires: []string{MetricNetRevenue, "prior." + model.FieldOrderedRevenue},
			Fn: change(MetricNetRevenue, "prior."+model.FieldOrderedRevenue)},
		{Name: "market_growth", Requires: []string{model.FieldMarketPurchases, "prior." + model.FieldMarketPurchases},
			Fn: change(model.FieldMarketPurchases, "prior."+model.FieldMarketPurchases)},
		{Name: "relative_growth", Requires: []string{MetricRevenueGrowth, "market_growth"},
			Fn: func(g Getter) model.Value { return g(MetricRevenueGrowth).Sub(g("market_growth")) }},
		{Name: "prior_purchase_share", Requires: []string{"prior." + model.FieldOwnPurchases, "prior." + model.FieldMarketPurchases},
			Fn: ratio("prior."+model.FieldOwnPurchases, "prior."+model.FieldMarketPurchases)},
		{Name: MetricMarketShareChange, Requires: []string{MetricPurchaseShare, "prior_purchase_share"},
			Fn: func(g Getter) model.Value { return g(MetricPurchaseShare).Sub(g("prior_purchase_share")) }},

		// Listing quality.
		{Name: "review_velocity", Requires: []string{model.FieldReviewsPerMonth}, Fn: pass(model.FieldReviewsPerMonth)},
		{Name: "rating", Requires: []string{model.FieldRating}, Fn: pass(model.FieldRating)},
		{Name: "buy_box_pct", Requires: []string{model.FieldBuyBoxPct}, Fn: pass(model.FieldBuyBoxPct)},
		{Name: MetricStrategicFit, Requires: []string{"manual.strategic_fit_score"}, Fn: pass("manual.strategic_fit_score")},
	}
}

// inventoryHealth labels stock as low, excess, aging or healthy, in that
// order of precedence.
func inventoryHealth(g Getter, inv config.InventoryConfig) string {
	dos, _ := g(MetricDaysOfSupply).Float()
	switch {
	case dos < inv.LowStockDays:
		return FlagLowStock
	case dos > inv.ExcessDays:
		return FlagExcess
	case g("aged_inventory_pct").Or(0) > inv.AgedShare:
		return FlagAging
	}
	return FlagHealthy
}
