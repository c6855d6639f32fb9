package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streamforge/billing/internal/api/dto"
	"github.com/streamforge/billing/internal/domain/events"
	"github.com/streamforge/billing/internal/domain/plan"
	"github.com/streamforge/billing/internal/domain/subscription"
	"github.com/streamforge/billing/internal/domain/usage"
	"github.com/streamforge/billing/internal/types"
)

type UsageServiceTestSuite struct {
	ServiceTestSuite
	usageService UsageService
	testData     struct {
		plan         *plan.Plan
		subscription *subscription.Subscription
		periodStart  time.Time
		periodEnd    time.Time
	}
}

func TestUsageService(t *testing.T) {
	suite.Run(t, new(UsageServiceTestSuite))
}

func (s *UsageServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.usageService = NewUsageService(s.params())

	s.testData.periodStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s.testData.periodEnd = time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	tier1Cap := decimal.NewFromInt(500)
	s.testData.plan = &plan.Plan{
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
	s.NoError(s.GetStores().Plan.Create(s.GetContext(), s.testData.plan))

	s.testData.subscription = &subscription.Subscription{
		ID:                 "subs_1",
		UserID:             "user_1",
		PlanID:             s.testData.plan.ID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		Currency:           "USD",
		CurrentPeriodStart: &s.testData.periodStart,
		CurrentPeriodEnd:   &s.testData.periodEnd,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().Subscription.Save(s.GetContext(), s.testData.subscription))
}

func (s *UsageServiceTestSuite) recordUsage(quantity float64, metadata types.Metadata) {
	_, err := s.usageService.RecordUsage(s.GetContext(), dto.RecordUsageRequest{
		SubscriptionID: s.testData.subscription.ID,
		UserID:         s.testData.subscription.UserID,
		UsageType:      types.UsageTypeStreamingMinutes,
		Quantity:       decimal.NewFromFloat(quantity),
		Metadata:       metadata,
		RecordedAt:     &s.testData.periodStart,
	})
	s.NoError(err)
}

func (s *UsageServiceTestSuite) TestQuotaConsumesTierCapacity() {
	// 600 minutes against a 100 minute quota: the quota consumes the bottom
	// of tier one, so 400 bill at 0.10 and 100 at 0.05.
	s.recordUsage(600, nil)

	charges, err := s.usageService.CalculateCharges(
		s.GetContext(), s.testData.subscription, s.testData.plan,
		s.testData.periodStart, s.testData.periodEnd)
	s.NoError(err)
	s.Require().Len(charges, 1)

	charge := charges[0]
	s.True(charge.Amount.Equal(decimal.NewFromInt(45)), "expected 45.00, got %s", charge.Amount)
	s.True(charge.TotalQuantity.Equal(decimal.NewFromInt(600)))

	s.Require().Len(charge.Tiers, 2)
	s.True(charge.Tiers[0].Quantity.Equal(decimal.NewFromInt(400)))
	s.True(charge.Tiers[0].Subtotal.Equal(decimal.NewFromInt(40)))
	s.True(charge.Tiers[1].Quantity.Equal(decimal.NewFromInt(100)))
	s.True(charge.Tiers[1].Subtotal.Equal(decimal.NewFromInt(5)))
}

func (s *UsageServiceTestSuite) TestUsageWithinQuotaProducesNoCharge() {
	s.recordUsage(80, nil)

	charges, err := s.usageService.CalculateCharges(
		s.GetContext(), s.testData.subscription, s.testData.plan,
		s.testData.periodStart, s.testData.periodEnd)
	s.NoError(err)
	s.Empty(charges)
}

func (s *UsageServiceTestSuite) TestMultiplierStoredAtRecordTime() {
	resp, err := s.usageService.RecordUsage(s.GetContext(), dto.RecordUsageRequest{
		SubscriptionID: s.testData.subscription.ID,
		UserID:         s.testData.subscription.UserID,
		UsageType:      types.UsageTypeStreamingMinutes,
		Quantity:       decimal.NewFromInt(100),
		Metadata:       types.Metadata{"quality": "uhd"},
		RecordedAt:     &s.testData.periodStart,
	})
	s.NoError(err)
	s.True(resp.Multiplier.Equal(decimal.NewFromInt(2)), "uhd doubles the effective quantity")
	s.True(resp.EffectiveQuantity().Equal(decimal.NewFromInt(200)))
}

func (s *UsageServiceTestSuite) TestThresholdCrossingPublishesAdvisoryEvent() {
	// 80 of 100 crosses the 75% threshold.
	s.recordUsage(80, nil)

	published := s.GetPublisher().EventsNamed("usage.threshold_crossed")
	s.Require().Len(published, 1)
	evt, ok := published[0].(events.UsageThresholdCrossed)
	s.Require().True(ok)
	s.Equal(75, evt.ThresholdPct)

	// 25 more crosses 90% and 100% in one recording.
	s.recordUsage(25, nil)
	published = s.GetPublisher().EventsNamed("usage.threshold_crossed")
	s.Require().Len(published, 3)
}

func (s *UsageServiceTestSuite) TestSettleChargesMarksRecordsBilled() {
	s.recordUsage(600, nil)

	charges, err := s.usageService.SettleCharges(
		s.GetContext(), s.testData.subscription, s.testData.plan,
		s.testData.periodStart, s.testData.periodEnd)
	s.NoError(err)
	s.Require().Len(charges, 1)

	// A second settlement finds nothing to bill.
	charges, err = s.usageService.SettleCharges(
		s.GetContext(), s.testData.subscription, s.testData.plan,
		s.testData.periodStart, s.testData.periodEnd)
	s.NoError(err)
	s.Empty(charges)
}

func (s *UsageServiceTestSuite) TestRecordUsageRejectsUnknownSubscription() {
	_, err := s.usageService.RecordUsage(s.GetContext(), dto.RecordUsageRequest{
		SubscriptionID: "subs_missing",
		UserID:         "user_1",
		UsageType:      types.UsageTypeStreamingMinutes,
		Quantity:       decimal.NewFromInt(10),
	})
	s.Error(err)
}

func (s *UsageServiceTestSuite) TestDeriveMultiplier() {
	s.True(usage.DeriveMultiplier(types.UsageTypeStreamingMinutes, types.Metadata{"quality": "hd"}).Equal(decimal.NewFromFloat(1.5)))
	s.True(usage.DeriveMultiplier(types.UsageTypeStreamingMinutes, types.Metadata{"quality": "sd"}).Equal(decimal.NewFromInt(1)))
	s.True(usage.DeriveMultiplier(types.UsageTypeDownloads, types.Metadata{"quality": "uhd"}).Equal(decimal.NewFromInt(1)), "quality only weights streaming minutes")
}
