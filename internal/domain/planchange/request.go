// Package planchange holds the plan change request, the idempotency and
// tracking record bridging the synchronous subscription mutation and the
// asynchronous invoice generation.
package planchange

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/domain/proration"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// Request tracks one plan change through the two-phase workflow. The
// proration snapshot is captured at decision time so the async phase is
// deterministic even if live state changes underneath it.
type Request struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	OldPlanID      string `json:"old_plan_id"`
	NewPlanID      string `json:"new_plan_id"`

	EffectiveDate time.Time `json:"effective_date"`
	Currency      string    `json:"currency"`

	CreditAmount decimal.Decimal           `json:"credit_amount"`
	ChargeAmount decimal.Decimal           `json:"charge_amount"`
	CreditLines  []proration.ProrationLine `json:"credit_lines,omitempty"`
	ChargeLines  []proration.ProrationLine `json:"charge_lines,omitempty"`

	RemovedAddOnIDs []string        `json:"removed_addon_ids,omitempty"`
	AddOnCredit     decimal.Decimal `json:"addon_credit"`

	PlanChangeStatus types.PlanChangeStatus `json:"plan_change_status"`
	InvoiceID        *string                `json:"invoice_id,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// IsInvoiceGenerated reports whether the request reached its terminal
// success state.
func (r *Request) IsInvoiceGenerated() bool {
	return r.PlanChangeStatus == types.PlanChangeStatusInvoiceGenerated
}

// MarkInvoiceGenerated transitions the request to its terminal success
// state. InvoiceGenerated is terminal: a second transition is rejected.
func (r *Request) MarkInvoiceGenerated(invoiceID string) error {
	if r.IsInvoiceGenerated() {
		return ierr.NewError("plan change request already has an invoice").
			WithHint("Invoice was already generated for this plan change").
			WithReportableDetails(map[string]interface{}{
				"request_id": r.ID,
				"invoice_id": r.InvoiceID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	r.PlanChangeStatus = types.PlanChangeStatusInvoiceGenerated
	r.InvoiceID = &invoiceID
	r.ErrorMessage = ""
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkInvoiceFailed records the failure message. A failed request can be
// retried, so this transition is not terminal.
func (r *Request) MarkInvoiceFailed(message string) error {
	if r.IsInvoiceGenerated() {
		return ierr.NewError("plan change request already has an invoice").
			WithHint("Cannot fail a request whose invoice was already generated").
			Mark(ierr.ErrInvalidOperation)
	}
	r.PlanChangeStatus = types.PlanChangeStatusInvoiceFailed
	r.ErrorMessage = message
	r.UpdatedAt = time.Now().UTC()
	return nil
}
