package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/domain/proration"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// ChangePlanRequest asks to switch a subscription to a new plan.
type ChangePlanRequest struct {
	UserID            string     `json:"user_id" validate:"required"`
	NewPlanID         string     `json:"new_plan_id" validate:"required"`
	EffectiveDate     *time.Time `json:"effective_date,omitempty"`
	ChargeImmediately bool       `json:"charge_immediately"`
}

func (r *ChangePlanRequest) Validate() error {
	if r.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.NewPlanID == "" {
		return ierr.NewError("new_plan_id is required").
			WithHint("Target plan ID is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetEffectiveDate defaults to now when the caller did not pick a date.
func (r *ChangePlanRequest) GetEffectiveDate() time.Time {
	if r.EffectiveDate != nil {
		return r.EffectiveDate.UTC()
	}
	return time.Now().UTC()
}

// PlanChangeResponse is returned synchronously from a plan change. The
// invoice itself is generated asynchronously; InvoiceStatus starts pending.
type PlanChangeResponse struct {
	RequestID      string          `json:"request_id"`
	SubscriptionID string          `json:"subscription_id"`
	OldPlanID      string          `json:"old_plan_id"`
	NewPlanID      string          `json:"new_plan_id"`
	EffectiveDate  time.Time       `json:"effective_date"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	ChargeAmount   decimal.Decimal `json:"charge_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	InvoiceStatus  string          `json:"invoice_status"`
}

// PlanChangePreviewResponse previews a plan change without mutating state.
type PlanChangePreviewResponse struct {
	SubscriptionID  string                    `json:"subscription_id"`
	CurrentPlanID   string                    `json:"current_plan_id"`
	TargetPlanID    string                    `json:"target_plan_id"`
	EffectiveDate   time.Time                 `json:"effective_date"`
	CreditAmount    decimal.Decimal           `json:"credit_amount"`
	ChargeAmount    decimal.Decimal           `json:"charge_amount"`
	NetAmount       decimal.Decimal           `json:"net_amount"`
	CreditLines     []proration.ProrationLine `json:"credit_lines,omitempty"`
	ChargeLines     []proration.ProrationLine `json:"charge_lines,omitempty"`
	RemovedAddOnIDs []string                  `json:"removed_addon_ids,omitempty"`
	Currency        string                    `json:"currency"`
}

// PlanChangeStatusResponse reports the async workflow state of a request.
type PlanChangeStatusResponse struct {
	RequestID    string                 `json:"request_id"`
	Status       types.PlanChangeStatus `json:"status"`
	InvoiceID    *string                `json:"invoice_id,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}
