package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streamforge/billing/internal/api/dto"
	"github.com/streamforge/billing/internal/domain/charge"
	"github.com/streamforge/billing/internal/domain/events"
	"github.com/streamforge/billing/internal/domain/plan"
	"github.com/streamforge/billing/internal/domain/subscription"
	"github.com/streamforge/billing/internal/types"
)

var invoiceNumberPattern = regexp.MustCompile(`^SF-\d{6}-.{1,8}-\d{4}$`)

type InvoiceWorkerTestSuite struct {
	ServiceTestSuite
	workerService     InvoiceWorkerService
	planChangeService PlanChangeService
	testData          struct {
		basic         *plan.Plan
		premium       *plan.Plan
		subscription  *subscription.Subscription
		periodStart   time.Time
		periodEnd     time.Time
		effectiveDate time.Time
	}
}

func TestInvoiceWorker(t *testing.T) {
	suite.Run(t, new(InvoiceWorkerTestSuite))
}

func (s *InvoiceWorkerTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.workerService = NewInvoiceWorkerService(s.params())
	s.planChangeService = NewPlanChangeService(s.params())

	s.testData.periodStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s.testData.periodEnd = time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	s.testData.effectiveDate = time.Date(2025, time.January, 16, 0, 0, 0, 0, time.UTC)

	tier1Cap := decimal.NewFromInt(500)
	s.testData.basic = &plan.Plan{
		ID:       "plan_basic",
		Name:     "Basic",
		Amount:   decimal.NewFromFloat(9.99),
		Currency: "USD",
		Interval: types.BillingIntervalMonth,
		IncludedQuotas: map[types.UsageType]decimal.Decimal{
			types.UsageTypeStreamingMinutes: decimal.NewFromInt(100),
		},
		UsageTiers: map[types.UsageType][]plan.UsageTier{
			types.UsageTypeStreamingMinutes: {
				{From: decimal.Zero, UpTo: &tier1Cap, UnitPrice: decimal.NewFromFloat(0.10)},
				{From: tier1Cap, UpTo: nil, UnitPrice: decimal.NewFromFloat(0.05)},
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.testData.premium = &plan.Plan{
		ID:        "plan_premium",
		Name:      "Premium",
		Amount:    decimal.NewFromFloat(19.99),
		Currency:  "USD",
		Interval:  types.BillingIntervalMonth,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().Plan.Create(s.GetContext(), s.testData.basic))
	s.NoError(s.GetStores().Plan.Create(s.GetContext(), s.testData.premium))

	s.testData.subscription = &subscription.Subscription{
		ID:                 "subs_1",
		UserID:             "user_1",
		PlanID:             s.testData.basic.ID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		Currency:           "USD",
		CurrentPeriodStart: &s.testData.periodStart,
		CurrentPeriodEnd:   &s.testData.periodEnd,
		BillingAddress:     types.Address{Country: "US", State: "CA"},
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().Subscription.Save(s.GetContext(), s.testData.subscription))

	s.NoError(s.GetStores().Charge.Create(s.GetContext(), &charge.Charge{
		ID:             "chrg_basic_jan",
		SubscriptionID: "subs_1",
		UserID:         "user_1",
		Description:    "Basic plan",
		Amount:         decimal.NewFromFloat(9.99),
		Currency:       "USD",
		PeriodStart:    s.testData.periodStart,
		PeriodEnd:      s.testData.periodEnd,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}))
}

// changePlan runs the synchronous phase and returns the published invoice
// event, the same payload the worker would receive from the broker.
func (s *InvoiceWorkerTestSuite) changePlan() *events.PlanChangeInvoiceEvent {
	_, err := s.planChangeService.ChangePlan(s.GetContext(), "subs_1", dto.ChangePlanRequest{
		UserID:        "user_1",
		NewPlanID:     "plan_premium",
		EffectiveDate: &s.testData.effectiveDate,
	})
	s.Require().NoError(err)

	published := s.GetPublisher().EventsNamed("plan_change.invoice_requested")
	s.Require().Len(published, 1)
	evt := published[0].(events.PlanChangeInvoiceEvent)
	return &evt
}

func (s *InvoiceWorkerTestSuite) recordUsage(quantity float64) {
	usageSvc := NewUsageService(s.params())
	_, err := usageSvc.RecordUsage(s.GetContext(), dto.RecordUsageRequest{
		SubscriptionID: "subs_1",
		UserID:         "user_1",
		UsageType:      types.UsageTypeStreamingMinutes,
		Quantity:       decimal.NewFromFloat(quantity),
		RecordedAt:     &s.testData.periodStart,
	})
	s.Require().NoError(err)
}

func (s *InvoiceWorkerTestSuite) TestGeneratesInvoiceEndToEnd() {
	s.recordUsage(600)
	event := s.changePlan()

	inv, err := s.workerService.ProcessPlanChangeInvoice(s.GetContext(), event)
	s.NoError(err)
	s.Require().NotNil(inv)

	s.Regexp(invoiceNumberPattern, inv.InvoiceNumber)
	s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)

	// One unused-time credit, one prorated charge, one usage line.
	s.Require().Len(inv.LineItems, 3)

	// -5.00 credit + 9.67 prorated charge + 45.00 overage, rated on the old
	// plan's quota and tiers. No US tax without the external provider and no
	// rate table entry.
	s.True(inv.Subtotal.Equal(decimal.NewFromFloat(49.67)), "expected 49.67, got %s", inv.Subtotal)
	s.True(inv.TotalTax.IsZero())
	s.True(inv.AmountDue.Equal(decimal.NewFromFloat(49.67)))

	// The request reached its terminal state.
	request, err := s.GetStores().PlanChange.Get(s.GetContext(), event.RequestID)
	s.NoError(err)
	s.True(request.IsInvoiceGenerated())
	s.Require().NotNil(request.InvoiceID)
	s.Equal(inv.ID, *request.InvoiceID)
}

func (s *InvoiceWorkerTestSuite) TestRedeliveryReturnsExistingInvoice() {
	s.recordUsage(600)
	event := s.changePlan()

	first, err := s.workerService.ProcessPlanChangeInvoice(s.GetContext(), event)
	s.NoError(err)

	second, err := s.workerService.ProcessPlanChangeInvoice(s.GetContext(), event)
	s.NoError(err)
	s.Equal(first.ID, second.ID, "redelivery must not create a second invoice")

	// Usage settled in the first run stays settled.
	s.True(second.AmountDue.Equal(first.AmountDue))
}

func (s *InvoiceWorkerTestSuite) TestAddOnCreditReducesAmountDue() {
	sub := s.testData.subscription
	s.NoError(sub.AddAddOn(&subscription.AddOn{
		ID:        "subadd_1",
		AddOnID:   "addon_sports",
		Name:      "Sports pack",
		Amount:    decimal.NewFromInt(10),
		Currency:  "USD",
		StartDate: s.testData.periodStart,
	}))
	sub.PullEvents()
	s.NoError(s.GetStores().Subscription.Save(s.GetContext(), sub))

	event := s.changePlan()
	s.True(event.AddOnCredit.Equal(decimal.NewFromInt(5)))

	inv, err := s.workerService.ProcessPlanChangeInvoice(s.GetContext(), event)
	s.NoError(err)

	// Subtotal 4.67 net of proration; the 5.00 addon credit covers it fully
	// and the remainder stays on the credit.
	s.True(inv.AmountDue.IsZero(), "expected zero due, got %s", inv.AmountDue)
	s.True(inv.TotalCredit.Equal(decimal.NewFromFloat(4.67)))

	remaining, err := s.GetStores().Credit.FindEligibleByUser(s.GetContext(), "user_1", time.Now().UTC())
	s.NoError(err)
	s.Require().Len(remaining, 1)
	s.True(remaining[0].RemainingAmount.Equal(decimal.NewFromFloat(0.33)))
}

func (s *InvoiceWorkerTestSuite) TestFailureMarksRequestAndReRaises() {
	event := s.changePlan()

	// The old plan disappearing makes usage rating impossible.
	s.NoError(s.GetStores().Plan.Delete(s.GetContext(), "plan_basic"))

	_, err := s.workerService.ProcessPlanChangeInvoice(s.GetContext(), event)
	s.Error(err)

	request, getErr := s.GetStores().PlanChange.Get(s.GetContext(), event.RequestID)
	s.NoError(getErr)
	s.Equal(types.PlanChangeStatusInvoiceFailed, request.PlanChangeStatus)
	s.NotEmpty(request.ErrorMessage)

	// A retry after the fault clears succeeds.
	s.NoError(s.GetStores().Plan.Create(s.GetContext(), s.testData.basic))
	inv, err := s.workerService.ProcessPlanChangeInvoice(s.GetContext(), event)
	s.NoError(err)
	s.NotNil(inv)
}

func (s *InvoiceWorkerTestSuite) TestUnknownRequestIsAnError() {
	event := s.changePlan()
	event.RequestID = "pc_missing"

	_, err := s.workerService.ProcessPlanChangeInvoice(s.GetContext(), event)
	s.Error(err)
}

func (s *InvoiceWorkerTestSuite) TestHandlerProcessesMessage() {
	event := s.changePlan()
	payload, err := event.Marshal()
	s.Require().NoError(err)

	msg := message.NewMessage("msg_1", payload)
	msg.Metadata.Set("event_name", event.EventName())

	s.NoError(s.workerService.Handler()(msg))

	request, err := s.GetStores().PlanChange.Get(s.GetContext(), event.RequestID)
	s.NoError(err)
	s.True(request.IsInvoiceGenerated())
}

func (s *InvoiceWorkerTestSuite) TestHandlerSkipsForeignEvents() {
	msg := message.NewMessage("msg_1", []byte(`{}`))
	msg.Metadata.Set("event_name", "subscription.activated")

	s.NoError(s.workerService.Handler()(msg), "foreign events ack without processing")
}

func (s *InvoiceWorkerTestSuite) TestHandlerAcksMalformedPayload() {
	msg := message.NewMessage("msg_1", []byte(`{not json`))
	msg.Metadata.Set("event_name", (events.PlanChangeInvoiceEvent{}).EventName())

	s.NoError(s.workerService.Handler()(msg), "a payload that cannot parse will never parse")
}
