package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/domain/plan"
	"github.com/streamforge/billing/internal/domain/subscription"
)

// estimatedAddOnPeriodDays approximates an add-on billing period when the
// subscription's real period end is not known. Known inaccuracy; do not
// change without product input.
const estimatedAddOnPeriodDays = 30

// AddOnMigrationService decides which add-ons survive a plan change and
// credits the rest.
type AddOnMigrationService interface {
	// MigrateAddOns partitions the subscription's active add-ons into kept
	// and removed by the new plan's allowed set. Removed add-ons get an end
	// date (never deleted) and a prorated credit for their unused time.
	MigrateAddOns(ctx context.Context, sub *subscription.Subscription, newPlan *plan.Plan, effectiveDate time.Time) (*subscription.AddOnMigrationResult, error)
}

type addOnMigrationService struct {
	ServiceParams
}

func NewAddOnMigrationService(params ServiceParams) AddOnMigrationService {
	return &addOnMigrationService{ServiceParams: params}
}

func (s *addOnMigrationService) MigrateAddOns(ctx context.Context, sub *subscription.Subscription, newPlan *plan.Plan, effectiveDate time.Time) (*subscription.AddOnMigrationResult, error) {
	result := &subscription.AddOnMigrationResult{
		Kept:        make([]*subscription.AddOn, 0),
		Removed:     make([]*subscription.AddOn, 0),
		TotalCredit: decimal.Zero,
	}

	for _, addOn := range sub.ActiveAddOns(effectiveDate) {
		if newPlan.AllowsAddOn(addOn.AddOnID) {
			result.Kept = append(result.Kept, addOn)
			continue
		}

		periodEnd := s.addOnPeriodEnd(sub, effectiveDate)
		credit := s.ProrationCalculator.CalculateAddOnProration(
			addOn.Amount, addOn.StartDate, effectiveDate, periodEnd)

		if err := sub.RemoveAddOn(addOn.AddOnID, effectiveDate); err != nil {
			return nil, err
		}

		result.Removed = append(result.Removed, addOn)
		result.TotalCredit = result.TotalCredit.Add(credit)

		s.Logger.Infow("addon removed during plan change",
			"subscription_id", sub.ID,
			"addon_id", addOn.AddOnID,
			"credit", credit.String())
	}

	return result, nil
}

func (s *addOnMigrationService) addOnPeriodEnd(sub *subscription.Subscription, effectiveDate time.Time) time.Time {
	if sub.CurrentPeriodEnd != nil {
		return *sub.CurrentPeriodEnd
	}
	return effectiveDate.AddDate(0, 0, estimatedAddOnPeriodDays)
}
