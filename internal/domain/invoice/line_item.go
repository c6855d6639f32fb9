package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// InvoiceLineItem represents a single line item in an invoice.
type InvoiceLineItem struct {
	ID          string           `json:"id"`
	InvoiceID   string           `json:"invoice_id"`
	Description string           `json:"description"`
	ChargeType  types.ChargeType `json:"charge_type"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`

	TaxAmount       decimal.Decimal       `json:"tax_amount"`
	TaxRate         decimal.Decimal       `json:"tax_rate"`
	TaxProvider     types.TaxProviderType `json:"tax_provider,omitempty"`
	TaxJurisdiction string                `json:"tax_jurisdiction,omitempty"`

	DiscountAmount decimal.Decimal `json:"discount_amount"`

	// TotalAmount is always amount + tax - discount, recomputed through
	// RecomputeTotal after any mutation.
	TotalAmount decimal.Decimal `json:"total_amount"`

	PeriodStart   *time.Time       `json:"period_start,omitempty"`
	PeriodEnd     *time.Time       `json:"period_end,omitempty"`
	ProrationRate *decimal.Decimal `json:"proration_rate,omitempty"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// RecomputeTotal refreshes the derived total after tax or discount changes.
func (i *InvoiceLineItem) RecomputeTotal() {
	i.TotalAmount = i.Amount.Add(i.TaxAmount).Sub(i.DiscountAmount)
}

// Validate validates the invoice line item.
func (i *InvoiceLineItem) Validate() error {
	if i.Quantity.IsNegative() {
		return ierr.NewError("invoice line item validation failed").
			WithHint("quantity must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.TaxAmount.IsNegative() {
		return ierr.NewError("invoice line item validation failed").
			WithHint("tax_amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.DiscountAmount.IsNegative() {
		return ierr.NewError("invoice line item validation failed").
			WithHint("discount_amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.PeriodStart != nil && i.PeriodEnd != nil {
		if i.PeriodEnd.Before(*i.PeriodStart) {
			return ierr.NewError("invoice line item validation failed").
				WithHint("period_end must be after period_start").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
