package dto

import (
	"github.com/streamforge/billing/internal/domain/credit"
	"github.com/streamforge/billing/internal/domain/invoice"
)

// InvoiceResponse is the API shape of an invoice with its line items.
type InvoiceResponse struct {
	*invoice.Invoice
	AppliedCredits []credit.Application `json:"applied_credits,omitempty"`
}
