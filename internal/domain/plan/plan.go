// Package plan holds the plan catalog entities.
package plan

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// UsageTier is one progressively-priced band of metered usage. UpTo is nil
// for the open-ended final tier.
type UsageTier struct {
	From      decimal.Decimal  `json:"from"`
	UpTo      *decimal.Decimal `json:"up_to,omitempty"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
}

// Plan is a purchasable subscription plan.
type Plan struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Amount   decimal.Decimal       `json:"amount"`
	Currency string                `json:"currency"`
	Interval types.BillingInterval `json:"interval"`

	// AllowedAddOnIDs is the set of add-ons compatible with this plan.
	AllowedAddOnIDs []string `json:"allowed_addon_ids,omitempty"`

	// IncludedQuotas is the usage included in the base price per usage type.
	IncludedQuotas map[types.UsageType]decimal.Decimal `json:"included_quotas,omitempty"`

	// UsageTiers is the tiered overage pricing per usage type, ascending by From.
	UsageTiers map[types.UsageType][]UsageTier `json:"usage_tiers,omitempty"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// AllowsAddOn reports whether the add-on is compatible with this plan.
func (p *Plan) AllowsAddOn(addOnID string) bool {
	return lo.Contains(p.AllowedAddOnIDs, addOnID)
}

// IncludedQuotaFor returns the included quota for a usage type, zero when
// the plan includes none.
func (p *Plan) IncludedQuotaFor(usageType types.UsageType) decimal.Decimal {
	if q, ok := p.IncludedQuotas[usageType]; ok {
		return q
	}
	return decimal.Zero
}
