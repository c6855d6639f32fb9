package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/api/dto"
	"github.com/streamforge/billing/internal/domain/events"
	"github.com/streamforge/billing/internal/domain/plan"
	"github.com/streamforge/billing/internal/domain/subscription"
	"github.com/streamforge/billing/internal/domain/usage"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// quotaThresholds are the advisory notification points, in percent of the
// included quota. Crossing one publishes an event; billing is unaffected.
var quotaThresholds = []int{75, 90, 100}

// UsageService records metered usage and rates it with tiered,
// quota-aware pricing.
type UsageService interface {
	RecordUsage(ctx context.Context, req dto.RecordUsageRequest) (*dto.UsageRecordResponse, error)

	// CalculateCharges aggregates unbilled usage for the period per usage
	// type and prices the overage above the plan's included quota through
	// the plan's tiers. Usage fully within quota produces no charge.
	CalculateCharges(ctx context.Context, sub *subscription.Subscription, p *plan.Plan, periodStart, periodEnd time.Time) ([]*usage.Charge, error)

	// SettleCharges rates like CalculateCharges and then marks every rated
	// record billed, so a later invoice cannot pick it up again.
	SettleCharges(ctx context.Context, sub *subscription.Subscription, p *plan.Plan, periodStart, periodEnd time.Time) ([]*usage.Charge, error)
}

type usageService struct {
	ServiceParams
}

func NewUsageService(params ServiceParams) UsageService {
	return &usageService{ServiceParams: params}
}

func (s *usageService) RecordUsage(ctx context.Context, req dto.RecordUsageRequest) (*dto.UsageRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.FindByID(ctx, req.SubscriptionID, req.UserID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": req.SubscriptionID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if !sub.IsActive() {
		return nil, ierr.NewError("cannot record usage on inactive subscription").
			WithHint("Subscription is not active").
			Mark(ierr.ErrInvalidOperation)
	}

	record := req.ToRecord(ctx)
	if err := s.UsageRepo.Create(ctx, record); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist usage record").
			Mark(ierr.ErrDatabase)
	}

	s.Logger.Debugw("usage recorded",
		"subscription_id", record.SubscriptionID,
		"usage_type", record.UsageType,
		"quantity", record.Quantity.String(),
		"multiplier", record.Multiplier.String())

	// Advisory only; a notification failure never fails the recording.
	if err := s.checkQuotaThresholds(ctx, sub, record); err != nil {
		s.Logger.Warnw("quota threshold check failed",
			"subscription_id", sub.ID,
			"error", err)
	}

	return &dto.UsageRecordResponse{Record: record}, nil
}

func (s *usageService) checkQuotaThresholds(ctx context.Context, sub *subscription.Subscription, record *usage.Record) error {
	if sub.CurrentPeriodStart == nil || sub.CurrentPeriodEnd == nil {
		return nil
	}

	p, err := s.PlanRepo.FindByID(ctx, sub.PlanID)
	if err != nil || p == nil {
		return err
	}

	quota := p.IncludedQuotaFor(record.UsageType)
	if !quota.IsPositive() {
		return nil
	}

	total, err := s.UsageRepo.SumQuantityForPeriod(ctx, sub.ID, record.UsageType, *sub.CurrentPeriodStart, *sub.CurrentPeriodEnd)
	if err != nil {
		return err
	}
	before := total.Sub(record.EffectiveQuantity())

	for _, pct := range quotaThresholds {
		threshold := quota.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100))
		if before.LessThan(threshold) && total.GreaterThanOrEqual(threshold) {
			evt := events.NewUsageThresholdCrossed(sub.ID, sub.UserID, record.UsageType, pct, total, quota)
			if err := s.EventPublisher.Publish(ctx, evt); err != nil {
				return err
			}
			s.Logger.Infow("usage threshold crossed",
				"subscription_id", sub.ID,
				"usage_type", record.UsageType,
				"threshold_pct", pct)
		}
	}
	return nil
}

func (s *usageService) CalculateCharges(ctx context.Context, sub *subscription.Subscription, p *plan.Plan, periodStart, periodEnd time.Time) ([]*usage.Charge, error) {
	records, err := s.UsageRepo.ListUnbilled(ctx, sub.ID, periodStart, periodEnd)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load unbilled usage records").
			Mark(ierr.ErrDatabase)
	}
	return s.rateRecords(sub, p, records), nil
}

func (s *usageService) SettleCharges(ctx context.Context, sub *subscription.Subscription, p *plan.Plan, periodStart, periodEnd time.Time) ([]*usage.Charge, error) {
	records, err := s.UsageRepo.ListUnbilled(ctx, sub.ID, periodStart, periodEnd)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load unbilled usage records").
			Mark(ierr.ErrDatabase)
	}
	charges := s.rateRecords(sub, p, records)

	if len(records) > 0 {
		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		if err := s.UsageRepo.MarkBilled(ctx, ids); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to mark usage records billed").
				Mark(ierr.ErrDatabase)
		}
	}
	return charges, nil
}

func (s *usageService) rateRecords(sub *subscription.Subscription, p *plan.Plan, records []*usage.Record) []*usage.Charge {
	// Aggregate effective quantity per usage type using the multiplier
	// stored at record time.
	totals := make(map[types.UsageType]decimal.Decimal)
	for _, r := range records {
		totals[r.UsageType] = totals[r.UsageType].Add(r.EffectiveQuantity())
	}

	usageTypes := make([]types.UsageType, 0, len(totals))
	for ut := range totals {
		usageTypes = append(usageTypes, ut)
	}
	sort.Slice(usageTypes, func(i, j int) bool { return usageTypes[i] < usageTypes[j] })

	charges := make([]*usage.Charge, 0, len(usageTypes))
	for _, ut := range usageTypes {
		total := totals[ut]
		quota := p.IncludedQuotaFor(ut)
		if total.LessThanOrEqual(quota) {
			continue
		}

		tiers := p.UsageTiers[ut]
		amount, breakdown := rateTiered(total, quota, tiers)
		if amount.IsZero() && len(breakdown) == 0 {
			continue
		}

		charges = append(charges, &usage.Charge{
			UsageType:     ut,
			TotalQuantity: total,
			Amount:        amount,
			Tiers:         breakdown,
		})

		s.Logger.Debugw("usage charge calculated",
			"subscription_id", sub.ID,
			"usage_type", ut,
			"total_quantity", total.String(),
			"amount", amount.String())
	}

	return charges
}

// rateTiered prices usage through ascending tiers. The included quota
// consumes tier capacity from the bottom: billing starts at the quota
// position, not at tier zero.
func rateTiered(total, quota decimal.Decimal, tiers []plan.UsageTier) (decimal.Decimal, []usage.TierUsage) {
	sorted := make([]plan.UsageTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From.LessThan(sorted[j].From) })

	amount := decimal.Zero
	breakdown := make([]usage.TierUsage, 0, len(sorted))
	position := quota

	for _, tier := range sorted {
		if position.GreaterThanOrEqual(total) {
			break
		}

		lower := decimal.Max(position, tier.From)
		upper := total
		if tier.UpTo != nil && tier.UpTo.LessThan(upper) {
			upper = *tier.UpTo
		}
		if upper.LessThanOrEqual(lower) {
			continue
		}

		qty := upper.Sub(lower)
		subtotal := qty.Mul(tier.UnitPrice).Round(2)
		amount = amount.Add(subtotal)
		breakdown = append(breakdown, usage.TierUsage{
			From:      tier.From,
			UpTo:      tier.UpTo,
			Quantity:  qty,
			UnitPrice: tier.UnitPrice,
			Subtotal:  subtotal,
		})
		position = upper
	}

	return amount, breakdown
}
