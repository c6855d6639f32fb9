// Package invoice holds the invoice aggregate and its derived totals.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// Invoice is a bill issued to a user. All totals are derived from the line
// items and credit applications, never set independently.
type Invoice struct {
	ID             string  `json:"id"`
	InvoiceNumber  string  `json:"invoice_number"`
	UserID         string  `json:"user_id"`
	SubscriptionID *string `json:"subscription_id,omitempty"`

	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	Currency      string              `json:"currency"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
	Total         decimal.Decimal `json:"total"`
	AmountDue     decimal.Decimal `json:"amount_due"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	LineItems []*InvoiceLineItem `json:"line_items,omitempty"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// RecalculateTotals re-derives every total from the line items and the
// applied credit. AmountDue never goes negative: excess credit stays on
// the credit, it is not refunded through the invoice.
func (i *Invoice) RecalculateTotals() {
	subtotal := decimal.Zero
	totalTax := decimal.Zero
	totalDiscount := decimal.Zero

	for _, li := range i.LineItems {
		li.RecomputeTotal()
		subtotal = subtotal.Add(li.Amount)
		totalTax = totalTax.Add(li.TaxAmount)
		totalDiscount = totalDiscount.Add(li.DiscountAmount)
	}

	i.Subtotal = subtotal
	i.TotalTax = totalTax
	i.TotalDiscount = totalDiscount
	i.Total = subtotal.Add(totalTax).Sub(totalDiscount)
	i.AmountDue = decimal.Max(decimal.Zero, i.Total.Sub(i.TotalCredit))
}

// ApplyCredit records applied credit and refreshes the amount due.
func (i *Invoice) ApplyCredit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ierr.NewError("credit amount cannot be negative").
			WithHint("Applied credit must be non-negative").
			Mark(ierr.ErrValidation)
	}
	i.TotalCredit = i.TotalCredit.Add(amount)
	i.AmountDue = decimal.Max(decimal.Zero, i.Total.Sub(i.TotalCredit))
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Finalize moves a draft invoice to open.
func (i *Invoice) Finalize() error {
	if i.InvoiceStatus != types.InvoiceStatusDraft {
		return ierr.NewError("only draft invoices can be finalized").
			WithHint("Invoice is not in draft status").
			WithReportableDetails(map[string]interface{}{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	i.InvoiceStatus = types.InvoiceStatusOpen
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPaid moves an open invoice to paid.
func (i *Invoice) MarkPaid() error {
	if i.InvoiceStatus != types.InvoiceStatusOpen {
		return ierr.NewError("only open invoices can be marked paid").
			WithHint("Invoice is not open").
			Mark(ierr.ErrInvalidOperation)
	}
	i.InvoiceStatus = types.InvoiceStatusPaid
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Void voids an invoice that has not been paid.
func (i *Invoice) Void() error {
	if i.InvoiceStatus == types.InvoiceStatusPaid {
		return ierr.NewError("paid invoices cannot be voided").
			WithHint("Invoice has already been paid").
			Mark(ierr.ErrInvalidOperation)
	}
	i.InvoiceStatus = types.InvoiceStatusVoid
	i.UpdatedAt = time.Now().UTC()
	return nil
}
