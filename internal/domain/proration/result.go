// Package proration computes pro-rata credits and charges for mid-cycle
// subscription changes.
package proration

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProrationLine is one audit line of a proration calculation. Credit lines
// carry negative amounts, charge lines positive ones.
type ProrationLine struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Rate        decimal.Decimal `json:"rate"`
}

// ProrationResult is the outcome of a plan change proration: the unused-time
// credit on the old plan and the prorated charge on the new plan, each with
// an ordered per-charge breakdown.
type ProrationResult struct {
	CreditAmount decimal.Decimal `json:"credit_amount"`
	ChargeAmount decimal.Decimal `json:"charge_amount"`
	CreditLines  []ProrationLine `json:"credit_lines"`
	ChargeLines  []ProrationLine `json:"charge_lines"`
}

// NetAmount is the settlement amount: positive means the user owes money.
func (r *ProrationResult) NetAmount() decimal.Decimal {
	return r.ChargeAmount.Sub(r.CreditAmount)
}
