package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/streamforge/billing/internal/api/dto"
	"github.com/streamforge/billing/internal/domain/events"
	"github.com/streamforge/billing/internal/domain/plan"
	"github.com/streamforge/billing/internal/domain/planchange"
	"github.com/streamforge/billing/internal/domain/subscription"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// PlanChangeService orchestrates plan changes. The synchronous phase
// validates, prorates, migrates add-ons, persists the subscription and the
// change request in one transaction under a per-subscription advisory
// lock, then publishes the invoice generation event. The invoice itself is
// produced asynchronously by the invoice worker.
type PlanChangeService interface {
	ChangePlan(ctx context.Context, subscriptionID string, req dto.ChangePlanRequest) (*dto.PlanChangeResponse, error)

	// PreviewPlanChange computes the proration outcome without mutating any
	// state.
	PreviewPlanChange(ctx context.Context, subscriptionID string, req dto.ChangePlanRequest) (*dto.PlanChangePreviewResponse, error)

	GetPlanChangeStatus(ctx context.Context, requestID string) (*dto.PlanChangeStatusResponse, error)
}

type planChangeService struct {
	ServiceParams
	prorationSvc ProrationService
	addOnSvc     AddOnMigrationService
}

func NewPlanChangeService(params ServiceParams) PlanChangeService {
	return &planChangeService{
		ServiceParams: params,
		prorationSvc:  NewProrationService(params),
		addOnSvc:      NewAddOnMigrationService(params),
	}
}

func (s *planChangeService) ChangePlan(ctx context.Context, subscriptionID string, req dto.ChangePlanRequest) (*dto.PlanChangeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	effectiveDate := req.GetEffectiveDate()

	sub, newPlan, err := s.loadChangeTargets(ctx, subscriptionID, req.UserID, req.NewPlanID)
	if err != nil {
		return nil, err
	}

	var request *planchange.Request
	var event *events.PlanChangeInvoiceEvent

	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		// Single writer per subscription. The lock is transaction scoped and
		// releases on commit or rollback.
		lockKey := types.GenerateLockKey(txCtx, types.LockScopeSubscription, map[string]interface{}{
			"subscription_id": sub.ID,
		})
		if err := s.DB.LockKey(txCtx, types.LockRequest{Key: lockKey}); err != nil {
			return err
		}

		pending, err := s.PlanChangeRepo.FindPendingBySubscription(txCtx, sub.ID)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to check for pending plan changes").
				Mark(ierr.ErrDatabase)
		}
		if pending != nil {
			return ierr.NewError("a plan change is already in progress").
				WithHint("Wait for the pending plan change to finish before requesting another").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": sub.ID,
					"request_id":      pending.ID,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		prorationResult, err := s.prorationSvc.CalculateChangeProration(txCtx, sub, newPlan, effectiveDate)
		if err != nil {
			return err
		}

		migration, err := s.addOnSvc.MigrateAddOns(txCtx, sub, newPlan, effectiveDate)
		if err != nil {
			return err
		}

		oldPlanID := sub.PlanID
		if err := sub.ChangePlan(newPlan.ID, effectiveDate); err != nil {
			return err
		}
		if err := s.SubRepo.Save(txCtx, sub); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to persist subscription").
				Mark(ierr.ErrDatabase)
		}

		request = &planchange.Request{
			ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN_CHANGE),
			SubscriptionID:   sub.ID,
			UserID:           sub.UserID,
			OldPlanID:        oldPlanID,
			NewPlanID:        newPlan.ID,
			EffectiveDate:    effectiveDate,
			Currency:         sub.Currency,
			CreditAmount:     prorationResult.CreditAmount,
			ChargeAmount:     prorationResult.ChargeAmount,
			CreditLines:      prorationResult.CreditLines,
			ChargeLines:      prorationResult.ChargeLines,
			RemovedAddOnIDs:  migration.RemovedIDs(),
			AddOnCredit:      migration.TotalCredit,
			PlanChangeStatus: types.PlanChangeStatusPendingInvoice,
			EnvironmentID:    types.GetEnvironmentID(txCtx),
			BaseModel:        types.GetDefaultBaseModel(txCtx),
		}
		if err := s.PlanChangeRepo.Create(txCtx, request); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to persist plan change request").
				Mark(ierr.ErrDatabase)
		}

		event = s.buildInvoiceEvent(txCtx, sub, request)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Events go out after the transaction commits. A publish failure is
	// logged but does not undo the committed change; the request stays
	// pending and can be replayed.
	if err := s.EventPublisher.PublishAll(ctx, sub.PullEvents()); err != nil {
		s.Logger.Errorw("failed to publish subscription events",
			"subscription_id", sub.ID,
			"error", err)
	}
	if err := s.EventPublisher.Publish(ctx, *event); err != nil {
		s.Logger.Errorw("failed to publish plan change invoice event",
			"request_id", request.ID,
			"error", err)
	}

	s.Logger.Infow("plan change accepted",
		"request_id", request.ID,
		"subscription_id", sub.ID,
		"old_plan_id", request.OldPlanID,
		"new_plan_id", request.NewPlanID,
		"net_amount", request.ChargeAmount.Sub(request.CreditAmount).String())

	return &dto.PlanChangeResponse{
		RequestID:      request.ID,
		SubscriptionID: sub.ID,
		OldPlanID:      request.OldPlanID,
		NewPlanID:      request.NewPlanID,
		EffectiveDate:  effectiveDate,
		CreditAmount:   request.CreditAmount,
		ChargeAmount:   request.ChargeAmount,
		NetAmount:      request.ChargeAmount.Sub(request.CreditAmount),
		InvoiceStatus:  "pending",
	}, nil
}

func (s *planChangeService) PreviewPlanChange(ctx context.Context, subscriptionID string, req dto.ChangePlanRequest) (*dto.PlanChangePreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	effectiveDate := req.GetEffectiveDate()

	sub, newPlan, err := s.loadChangeTargets(ctx, subscriptionID, req.UserID, req.NewPlanID)
	if err != nil {
		return nil, err
	}

	prorationResult, err := s.prorationSvc.CalculateChangeProration(ctx, sub, newPlan, effectiveDate)
	if err != nil {
		return nil, err
	}

	// Removed add-ons are derived without touching the aggregate.
	removed := lo.FilterMap(sub.ActiveAddOns(effectiveDate), func(a *subscription.AddOn, _ int) (string, bool) {
		return a.AddOnID, !newPlan.AllowsAddOn(a.AddOnID)
	})

	return &dto.PlanChangePreviewResponse{
		SubscriptionID:  sub.ID,
		CurrentPlanID:   sub.PlanID,
		TargetPlanID:    newPlan.ID,
		EffectiveDate:   effectiveDate,
		CreditAmount:    prorationResult.CreditAmount,
		ChargeAmount:    prorationResult.ChargeAmount,
		NetAmount:       prorationResult.NetAmount(),
		CreditLines:     prorationResult.CreditLines,
		ChargeLines:     prorationResult.ChargeLines,
		RemovedAddOnIDs: removed,
		Currency:        sub.Currency,
	}, nil
}

func (s *planChangeService) GetPlanChangeStatus(ctx context.Context, requestID string) (*dto.PlanChangeStatusResponse, error) {
	request, err := s.PlanChangeRepo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ierr.NewError("plan change request not found").
			WithHint("Plan change request not found").
			WithReportableDetails(map[string]interface{}{"request_id": requestID}).
			Mark(ierr.ErrNotFound)
	}
	return &dto.PlanChangeStatusResponse{
		RequestID:    request.ID,
		Status:       request.PlanChangeStatus,
		InvoiceID:    request.InvoiceID,
		ErrorMessage: request.ErrorMessage,
	}, nil
}

// loadChangeTargets resolves and validates the subscription and target plan
// shared by ChangePlan and PreviewPlanChange.
func (s *planChangeService) loadChangeTargets(ctx context.Context, subscriptionID, userID, newPlanID string) (*subscription.Subscription, *plan.Plan, error) {
	sub, err := s.SubRepo.FindByID(ctx, subscriptionID, userID)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if !sub.IsActive() {
		return nil, nil, ierr.NewError("cannot change plan of inactive subscription").
			WithHint("Cannot change plan of inactive subscription").
			Mark(ierr.ErrInvalidOperation)
	}
	if sub.PlanID == newPlanID {
		return nil, nil, ierr.NewError("already on this plan").
			WithHint("Already on this plan").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"plan_id":         sub.PlanID,
			}).
			Mark(ierr.ErrValidation)
	}

	newPlan, err := s.PlanRepo.FindByID(ctx, newPlanID)
	if err != nil {
		return nil, nil, err
	}
	if newPlan == nil {
		return nil, nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			WithReportableDetails(map[string]interface{}{
				"plan_id": newPlanID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return sub, newPlan, nil
}

func (s *planChangeService) buildInvoiceEvent(ctx context.Context, sub *subscription.Subscription, request *planchange.Request) *events.PlanChangeInvoiceEvent {
	var periodStart, periodEnd time.Time
	if sub.CurrentPeriodStart != nil {
		periodStart = *sub.CurrentPeriodStart
	}
	if sub.CurrentPeriodEnd != nil {
		periodEnd = *sub.CurrentPeriodEnd
	}

	event := events.NewPlanChangeInvoiceEvent(events.PlanChangeInvoiceEvent{
		RequestID:       request.ID,
		TenantID:        types.GetTenantID(ctx),
		EnvironmentID:   types.GetEnvironmentID(ctx),
		SubscriptionID:  sub.ID,
		UserID:          sub.UserID,
		OldPlanID:       request.OldPlanID,
		NewPlanID:       request.NewPlanID,
		Currency:        request.Currency,
		EffectiveDate:   request.EffectiveDate,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		CreditAmount:    request.CreditAmount,
		ChargeAmount:    request.ChargeAmount,
		CreditLines:     request.CreditLines,
		ChargeLines:     request.ChargeLines,
		RemovedAddOnIDs: request.RemovedAddOnIDs,
		AddOnCredit:     request.AddOnCredit,
		BillingAddress:  sub.BillingAddress,
	})
	return &event
}
