package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streamforge/billing/internal/api/dto"
	"github.com/streamforge/billing/internal/domain/credit"
	"github.com/streamforge/billing/internal/domain/invoice"
	"github.com/streamforge/billing/internal/types"
)

type CreditServiceTestSuite struct {
	ServiceTestSuite
	creditService CreditService
}

func TestCreditService(t *testing.T) {
	suite.Run(t, new(CreditServiceTestSuite))
}

func (s *CreditServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.creditService = NewCreditService(s.params())
}

func (s *CreditServiceTestSuite) seedCredit(id string, amount float64, createdAt time.Time, expiresAt *time.Time) *credit.Credit {
	c := &credit.Credit{
		ID:              id,
		UserID:          "user_1",
		Type:            types.CreditTypePromotional,
		Amount:          decimal.NewFromFloat(amount),
		RemainingAmount: decimal.NewFromFloat(amount),
		Currency:        "USD",
		ExpiresAt:       expiresAt,
		BaseModel:       types.BaseModel{CreatedAt: createdAt, Status: types.StatusPublished},
	}
	s.NoError(s.GetStores().Credit.Create(s.GetContext(), c))
	return c
}

func (s *CreditServiceTestSuite) newInvoice(amountDue float64) *invoice.Invoice {
	due := decimal.NewFromFloat(amountDue)
	return &invoice.Invoice{
		ID:            "inv_1",
		InvoiceNumber: "SF-202501-user_1-0001",
		UserID:        "user_1",
		InvoiceStatus: types.InvoiceStatusDraft,
		Currency:      "USD",
		Total:         due,
		AmountDue:     due,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
}

func (s *CreditServiceTestSuite) TestGrantCredit() {
	resp, err := s.creditService.GrantCredit(s.GetContext(), dto.GrantCreditRequest{
		UserID:   "user_1",
		Type:     types.CreditTypeService,
		Amount:   decimal.NewFromInt(25),
		Currency: "USD",
	})
	s.NoError(err)
	s.True(resp.RemainingAmount.Equal(decimal.NewFromInt(25)), "remaining starts at the granted amount")

	stored, err := s.GetStores().Credit.FindEligibleByUser(s.GetContext(), "user_1", time.Now().UTC())
	s.NoError(err)
	s.Len(stored, 1)
}

func (s *CreditServiceTestSuite) TestGrantCreditRejectsPastExpiry() {
	past := time.Now().UTC().Add(-time.Hour)
	_, err := s.creditService.GrantCredit(s.GetContext(), dto.GrantCreditRequest{
		UserID:    "user_1",
		Type:      types.CreditTypeService,
		Amount:    decimal.NewFromInt(25),
		Currency:  "USD",
		ExpiresAt: &past,
	})
	s.Error(err)
}

func (s *CreditServiceTestSuite) TestAppliesExpiringCreditsFirst() {
	now := time.Now().UTC()
	soon := now.Add(24 * time.Hour)
	s.seedCredit("cred_nonexp", 50, now.Add(-48*time.Hour), nil)
	s.seedCredit("cred_exp", 10, now, &soon)

	inv := s.newInvoice(30)
	applications, err := s.creditService.ApplyCreditsToInvoice(s.GetContext(), inv)
	s.NoError(err)
	s.Require().Len(applications, 2)

	// The expiring credit burns fully before the older open-ended one.
	s.Equal("cred_exp", applications[0].CreditID)
	s.True(applications[0].AmountApplied.Equal(decimal.NewFromInt(10)))
	s.True(applications[0].RemainingBalance.IsZero())

	s.Equal("cred_nonexp", applications[1].CreditID)
	s.True(applications[1].AmountApplied.Equal(decimal.NewFromInt(20)))
	s.True(applications[1].RemainingBalance.Equal(decimal.NewFromInt(30)))

	s.True(inv.AmountDue.IsZero())
	s.True(inv.TotalCredit.Equal(decimal.NewFromInt(30)))
}

func (s *CreditServiceTestSuite) TestPartialCoverageLeavesBalanceDue() {
	s.seedCredit("cred_1", 10, time.Now().UTC(), nil)

	inv := s.newInvoice(45)
	applications, err := s.creditService.ApplyCreditsToInvoice(s.GetContext(), inv)
	s.NoError(err)
	s.Require().Len(applications, 1)

	s.True(inv.AmountDue.Equal(decimal.NewFromInt(35)))
	s.True(inv.TotalCredit.Equal(decimal.NewFromInt(10)))
}

func (s *CreditServiceTestSuite) TestCreditMutationIsPersisted() {
	s.seedCredit("cred_1", 50, time.Now().UTC(), nil)

	inv := s.newInvoice(20)
	_, err := s.creditService.ApplyCreditsToInvoice(s.GetContext(), inv)
	s.NoError(err)

	stored, err := s.GetStores().Credit.FindEligibleByUser(s.GetContext(), "user_1", time.Now().UTC())
	s.NoError(err)
	s.Require().Len(stored, 1)
	s.True(stored[0].RemainingAmount.Equal(decimal.NewFromInt(30)))
	s.Require().NotNil(stored[0].AppliedInvoiceID)
	s.Equal(inv.ID, *stored[0].AppliedInvoiceID)
}

func (s *CreditServiceTestSuite) TestSkipsCurrencyMismatch() {
	now := time.Now().UTC()
	c := &credit.Credit{
		ID:              "cred_eur",
		UserID:          "user_1",
		Type:            types.CreditTypePromotional,
		Amount:          decimal.NewFromInt(50),
		RemainingAmount: decimal.NewFromInt(50),
		Currency:        "EUR",
		BaseModel:       types.BaseModel{CreatedAt: now, Status: types.StatusPublished},
	}
	s.NoError(s.GetStores().Credit.Create(s.GetContext(), c))

	inv := s.newInvoice(20)
	applications, err := s.creditService.ApplyCreditsToInvoice(s.GetContext(), inv)
	s.NoError(err)
	s.Empty(applications)
	s.True(inv.AmountDue.Equal(decimal.NewFromInt(20)))
}

func (s *CreditServiceTestSuite) TestZeroAmountDueIsANoOp() {
	s.seedCredit("cred_1", 50, time.Now().UTC(), nil)

	inv := s.newInvoice(0)
	applications, err := s.creditService.ApplyCreditsToInvoice(s.GetContext(), inv)
	s.NoError(err)
	s.Empty(applications)
}
