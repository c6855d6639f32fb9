package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/domain/proration"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// PlanChangeInvoiceEvent is the async job payload published after the
// synchronous phase of a plan change. It carries the full proration
// snapshot and billing context so the invoice worker never re-derives
// proration from possibly-changed live state.
type PlanChangeInvoiceEvent struct {
	baseEvent
	RequestID       string                      `json:"request_id"`
	TenantID        string                      `json:"tenant_id"`
	EnvironmentID   string                      `json:"environment_id,omitempty"`
	SubscriptionID  string                      `json:"subscription_id"`
	UserID          string                      `json:"user_id"`
	OldPlanID       string                      `json:"old_plan_id"`
	NewPlanID       string                      `json:"new_plan_id"`
	Currency        string                      `json:"currency"`
	EffectiveDate   time.Time                   `json:"effective_date"`
	PeriodStart     time.Time                   `json:"period_start"`
	PeriodEnd       time.Time                   `json:"period_end"`
	CreditAmount    decimal.Decimal             `json:"credit_amount"`
	ChargeAmount    decimal.Decimal             `json:"charge_amount"`
	CreditLines     []proration.ProrationLine   `json:"credit_lines"`
	ChargeLines     []proration.ProrationLine   `json:"charge_lines"`
	RemovedAddOnIDs []string                    `json:"removed_addon_ids,omitempty"`
	AddOnCredit     decimal.Decimal             `json:"addon_credit"`
	BillingAddress  types.Address               `json:"billing_address"`
}

func (PlanChangeInvoiceEvent) EventName() string { return "plan_change.invoice_requested" }

// NewPlanChangeInvoiceEvent stamps the event with the current time.
func NewPlanChangeInvoiceEvent(e PlanChangeInvoiceEvent) PlanChangeInvoiceEvent {
	e.baseEvent = newBaseEvent()
	return e
}

// Marshal encodes the event for the wire.
func (e PlanChangeInvoiceEvent) Marshal() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to marshal plan change invoice event").
			Mark(ierr.ErrSystem)
	}
	return payload, nil
}

// UnmarshalPlanChangeInvoiceEvent decodes a wire payload.
func UnmarshalPlanChangeInvoiceEvent(payload []byte) (*PlanChangeInvoiceEvent, error) {
	var e PlanChangeInvoiceEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal plan change invoice event").
			Mark(ierr.ErrSystem)
	}
	return &e, nil
}
