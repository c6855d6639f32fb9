package service

import (
	"context"
	"time"

	"github.com/streamforge/billing/internal/domain/plan"
	"github.com/streamforge/billing/internal/domain/proration"
	"github.com/streamforge/billing/internal/domain/subscription"
	ierr "github.com/streamforge/billing/internal/errors"
)

// ProrationService computes the proration outcome of a plan change: the
// unused-time credit on the old plan and the prorated charge on the new
// plan for the remainder of the current period.
type ProrationService interface {
	CalculateChangeProration(ctx context.Context, sub *subscription.Subscription, newPlan *plan.Plan, effectiveDate time.Time) (*proration.ProrationResult, error)
}

type prorationService struct {
	ServiceParams
}

func NewProrationService(params ServiceParams) ProrationService {
	return &prorationService{ServiceParams: params}
}

func (s *prorationService) CalculateChangeProration(ctx context.Context, sub *subscription.Subscription, newPlan *plan.Plan, effectiveDate time.Time) (*proration.ProrationResult, error) {
	if sub == nil || newPlan == nil {
		return nil, ierr.NewError("subscription and new plan are required").
			WithHint("Provide a valid subscription and target plan").
			Mark(ierr.ErrValidation)
	}

	result := &proration.ProrationResult{}

	// Missing period bounds mean no proration, not an error.
	if sub.CurrentPeriodStart == nil || sub.CurrentPeriodEnd == nil {
		s.Logger.Infow("skipping proration - subscription has no current period",
			"subscription_id", sub.ID)
		return result, nil
	}

	charges, err := s.ChargeRepo.ListBySubscriptionPeriod(ctx, sub.ID, *sub.CurrentPeriodStart, *sub.CurrentPeriodEnd)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load period charges for proration").
			Mark(ierr.ErrDatabase)
	}

	periodCharges := make([]proration.PeriodCharge, 0, len(charges))
	for _, ch := range charges {
		periodCharges = append(periodCharges, proration.PeriodCharge{
			Description: ch.Description,
			Amount:      ch.Amount,
			TaxAmount:   ch.TaxAmount,
		})
	}

	period := proration.Period{Start: sub.CurrentPeriodStart, End: sub.CurrentPeriodEnd}
	creditAmount, creditLines := s.ProrationCalculator.CalculateCredit(period, periodCharges, effectiveDate)

	chargeAmount, chargeLines := s.ProrationCalculator.CalculateCharge(
		newPlan.Amount, newPlan.Name, newPlan.Interval, effectiveDate, *sub.CurrentPeriodEnd)

	result.CreditAmount = creditAmount
	result.CreditLines = creditLines
	result.ChargeAmount = chargeAmount
	result.ChargeLines = chargeLines

	s.Logger.Debugw("proration calculated",
		"subscription_id", sub.ID,
		"new_plan_id", newPlan.ID,
		"credit_amount", creditAmount.String(),
		"charge_amount", chargeAmount.String(),
		"net_amount", result.NetAmount().String())

	return result, nil
}
