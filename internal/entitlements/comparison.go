package entitlements

import (
	"github.com/shopspring/decimal"

	"clubdesk/internal/plans"
	"clubdesk/internal/pricing"
)

// FeatureStatus is one row of a feature listing.
type FeatureStatus struct {
	Feature     plans.Feature `json:"feature"`
	Name        string        `json:"name"`
	Enabled     bool          `json:"enabled"`
	Description string        `json:"description"`
}

// PlanSummary is one column of the upgrade comparison table. MemberLimit is
// nil for unlimited plans.
type PlanSummary struct {
	Tier         plans.Tier      `json:"tier"`
	DisplayName  string          `json:"display_name"`
	Price        decimal.Decimal `json:"price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
	PriceLabel   string          `json:"price_label"`
	YearlyLabel  string          `json:"yearly_label"`
	YearlySaving decimal.Decimal `json:"yearly_saving"`
	MemberLimit  *int            `json:"member_limit"`
	Current      bool            `json:"current"`
	Features     []FeatureStatus `json:"features"`
}

// FeatureList returns every feature in canonical order with its state on
// the resolved plan. Listing is a read of the plan, not an access check, so
// the audit hook is not called.
func (e *Engine) FeatureList() []FeatureStatus {
	plan, _ := e.resolved()
	features := plans.Features()
	out := make([]FeatureStatus, 0, len(features))
	for _, f := range features {
		out = append(out, FeatureStatus{
			Feature:     f,
			Name:        f.DisplayName(),
			Enabled:     plan.Features.Has(f),
			Description: f.Description(),
		})
	}
	return out
}

// PlanComparison lists every catalog tier in ascending order. Feature flags
// are those of each tier, not of the caller's plan.
func (e *Engine) PlanComparison() []PlanSummary {
	current := e.CurrentPlan()
	tiers := plans.Tiers()
	out := make([]PlanSummary, 0, len(tiers))
	for _, tier := range tiers {
		plan := plans.Lookup(tier)
		summary := PlanSummary{
			Tier:         tier,
			DisplayName:  pricing.FormatPlanName(tier),
			Price:        plan.Pricing.Monthly,
			YearlyPrice:  plan.Pricing.Yearly,
			PriceLabel:   pricing.FormatPrice(plan.Pricing.Monthly, pricing.Monthly),
			YearlyLabel:  pricing.FormatPrice(plan.Pricing.Yearly, pricing.Yearly),
			YearlySaving: pricing.CalculateYearlySavings(plan.Pricing.Monthly, plan.Pricing.Yearly),
			Current:      tier == current,
		}
		if plan.MemberLimit > 0 {
			limit := plan.MemberLimit
			summary.MemberLimit = &limit
		}
		for _, f := range plans.Features() {
			summary.Features = append(summary.Features, FeatureStatus{
				Feature:     f,
				Name:        f.DisplayName(),
				Enabled:     plan.Features.Has(f),
				Description: f.Description(),
			})
		}
		out = append(out, summary)
	}
	return out
}
