package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/streamforge/billing/internal/domain/credit"
	"github.com/streamforge/billing/internal/domain/events"
	"github.com/streamforge/billing/internal/domain/invoice"
	"github.com/streamforge/billing/internal/domain/planchange"
	"github.com/streamforge/billing/internal/domain/proration"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// InvoiceWorkerService is the asynchronous half of a plan change. One
// delivery runs usage rating, tax, discounts, invoice assembly and credit
// application in a single transaction. Deliveries are at-least-once: a
// request that already generated its invoice short-circuits and returns it.
type InvoiceWorkerService interface {
	ProcessPlanChangeInvoice(ctx context.Context, event *events.PlanChangeInvoiceEvent) (*invoice.Invoice, error)

	// Handler adapts ProcessPlanChangeInvoice to a watermill message handler.
	// Returning an error nacks the message so the transport retries it.
	Handler() func(msg *message.Message) error
}

type invoiceWorkerService struct {
	ServiceParams
	usageSvc    UsageService
	taxSvc      TaxService
	discountSvc DiscountService
	creditSvc   CreditService
	invoiceSvc  InvoiceService
}

func NewInvoiceWorkerService(params ServiceParams) InvoiceWorkerService {
	return &invoiceWorkerService{
		ServiceParams: params,
		usageSvc:      NewUsageService(params),
		taxSvc:        NewTaxService(params),
		discountSvc:   NewDiscountService(params),
		creditSvc:     NewCreditService(params),
		invoiceSvc:    NewInvoiceService(params),
	}
}

func (s *invoiceWorkerService) ProcessPlanChangeInvoice(ctx context.Context, event *events.PlanChangeInvoiceEvent) (*invoice.Invoice, error) {
	request, err := s.PlanChangeRepo.Get(ctx, event.RequestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ierr.NewError("plan change request not found").
			WithHint("Plan change request not found").
			WithReportableDetails(map[string]interface{}{
				"request_id": event.RequestID,
			}).
			Mark(ierr.ErrNotFound)
	}

	// Idempotency guard for redelivery: a generated invoice is terminal.
	if request.IsInvoiceGenerated() {
		s.Logger.Infow("plan change invoice already generated, returning existing invoice",
			"request_id", request.ID,
			"invoice_id", request.InvoiceID)
		return s.InvoiceRepo.Get(ctx, *request.InvoiceID)
	}

	inv, err := s.generateInvoice(ctx, event, request)
	if err != nil {
		// Record the failure on the request, then re-raise so the transport's
		// retry policy sees it. The failure write is best effort.
		if markErr := request.MarkInvoiceFailed(err.Error()); markErr == nil {
			if updateErr := s.PlanChangeRepo.Update(ctx, request); updateErr != nil {
				s.Logger.Errorw("failed to record invoice failure",
					"request_id", request.ID,
					"error", updateErr)
			}
		}
		s.Logger.Errorw("plan change invoice generation failed",
			"request_id", request.ID,
			"error", err)
		return nil, err
	}

	s.Logger.Infow("plan change invoice generated",
		"request_id", request.ID,
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"amount_due", inv.AmountDue.String())

	return inv, nil
}

func (s *invoiceWorkerService) generateInvoice(ctx context.Context, event *events.PlanChangeInvoiceEvent, request *planchange.Request) (*invoice.Invoice, error) {
	var inv *invoice.Invoice

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		sub, err := s.SubRepo.FindByID(txCtx, event.SubscriptionID, event.UserID)
		if err != nil {
			return err
		}
		if sub == nil {
			return ierr.NewError("subscription not found").
				WithHint("Subscription no longer exists").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": event.SubscriptionID,
				}).
				Mark(ierr.ErrNotFound)
		}

		// Usage accrued in the closing period is rated with the old plan's
		// quota and tiers.
		oldPlan, err := s.PlanRepo.FindByID(txCtx, event.OldPlanID)
		if err != nil {
			return err
		}
		if oldPlan == nil {
			return ierr.NewError("plan not found").
				WithHint("Old plan no longer exists").
				WithReportableDetails(map[string]interface{}{
					"plan_id": event.OldPlanID,
				}).
				Mark(ierr.ErrNotFound)
		}

		usageCharges, err := s.usageSvc.SettleCharges(txCtx, sub, oldPlan, event.PeriodStart, event.PeriodEnd)
		if err != nil {
			return err
		}

		// The proration snapshot travels on the event; the worker never
		// re-derives it from live state.
		prorationLines := make([]proration.ProrationLine, 0, len(event.CreditLines)+len(event.ChargeLines))
		prorationLines = append(prorationLines, event.CreditLines...)
		prorationLines = append(prorationLines, event.ChargeLines...)

		periodStart := event.PeriodStart
		periodEnd := event.PeriodEnd
		inv, err = s.invoiceSvc.CreateDraftInvoice(txCtx, CreateInvoiceParams{
			UserID:         event.UserID,
			SubscriptionID: event.SubscriptionID,
			Currency:       event.Currency,
			ProrationLines: prorationLines,
			UsageCharges:   usageCharges,
			PeriodStart:    &periodStart,
			PeriodEnd:      &periodEnd,
		})
		if err != nil {
			return err
		}

		// Tax first, discounts second: discounts do not reduce the taxable
		// base in this design.
		if err := s.taxSvc.ApplyTax(txCtx, inv.LineItems, event.BillingAddress, event.Currency, event.EffectiveDate); err != nil {
			return err
		}
		if _, err := s.discountSvc.ApplyDiscounts(txCtx, inv.LineItems, sub.DiscountIDs); err != nil {
			return err
		}
		inv.RecalculateTotals()

		// Credit for removed add-ons goes through the ledger so it follows
		// the same FIFO application as every other credit.
		if event.AddOnCredit.IsPositive() {
			if err := s.grantAddOnCredit(txCtx, event); err != nil {
				return err
			}
		}

		if _, err := s.creditSvc.ApplyCreditsToInvoice(txCtx, inv); err != nil {
			return err
		}

		if err := s.InvoiceRepo.Update(txCtx, inv); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to persist invoice").
				Mark(ierr.ErrDatabase)
		}

		if err := request.MarkInvoiceGenerated(inv.ID); err != nil {
			return err
		}
		return s.PlanChangeRepo.Update(txCtx, request)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceWorkerService) grantAddOnCredit(ctx context.Context, event *events.PlanChangeInvoiceEvent) error {
	c := &credit.Credit{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT),
		UserID:          event.UserID,
		Type:            types.CreditTypeProration,
		Amount:          event.AddOnCredit,
		RemainingAmount: event.AddOnCredit,
		Currency:        event.Currency,
		EnvironmentID:   event.EnvironmentID,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := s.CreditRepo.Create(ctx, c); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to grant add-on proration credit").
			Mark(ierr.ErrDatabase)
	}
	s.Logger.Infow("addon proration credit granted",
		"credit_id", c.ID,
		"user_id", c.UserID,
		"amount", c.Amount.String())
	return nil
}

func (s *invoiceWorkerService) Handler() func(msg *message.Message) error {
	return func(msg *message.Message) error {
		if msg.Metadata.Get("event_name") != (events.PlanChangeInvoiceEvent{}).EventName() {
			// Not ours; ack and move on.
			return nil
		}

		event, err := events.UnmarshalPlanChangeInvoiceEvent(msg.Payload)
		if err != nil {
			s.Logger.Errorw("dropping malformed plan change invoice event",
				"message_id", msg.UUID,
				"error", err)
			// A payload that cannot parse will never parse; acking avoids a
			// poison-message loop.
			return nil
		}

		ctx := msg.Context()
		if event.TenantID != "" {
			ctx = types.SetTenantID(ctx, event.TenantID)
		}
		if event.EnvironmentID != "" {
			ctx = types.SetEnvironmentID(ctx, event.EnvironmentID)
		}

		_, err = s.ProcessPlanChangeInvoice(ctx, event)
		return err
	}
}
