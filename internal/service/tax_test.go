package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streamforge/billing/internal/domain/invoice"
	"github.com/streamforge/billing/internal/domain/tax"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/integration/taxprovider"
	"github.com/streamforge/billing/internal/types"
)

// stubTaxProvider is a scripted external tax client.
type stubTaxProvider struct {
	response *taxprovider.CalculationResponse
	err      error
	calls    int
}

func (s *stubTaxProvider) CalculateTax(_ context.Context, _ taxprovider.CalculationRequest) (*taxprovider.CalculationResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

type TaxServiceTestSuite struct {
	ServiceTestSuite
	now time.Time
}

func TestTaxService(t *testing.T) {
	suite.Run(t, new(TaxServiceTestSuite))
}

func (s *TaxServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.now = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
}

func (s *TaxServiceTestSuite) newLines(amounts ...float64) []*invoice.InvoiceLineItem {
	lines := make([]*invoice.InvoiceLineItem, 0, len(amounts))
	for i := range amounts {
		lines = append(lines, &invoice.InvoiceLineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			Description: "line",
			ChargeType:  types.ChargeTypeSubscription,
			Quantity:    decimal.NewFromInt(1),
			Amount:      decimal.NewFromFloat(amounts[i]),
			Currency:    "USD",
		})
	}
	return lines
}

func (s *TaxServiceTestSuite) TestEUAddressUsesVATTable() {
	svc := NewTaxService(s.params())
	lines := s.newLines(100)

	err := svc.ApplyTax(s.GetContext(), lines, types.Address{Country: "DE"}, "EUR", s.now)
	s.NoError(err)

	s.True(lines[0].TaxAmount.Equal(decimal.NewFromInt(19)), "expected 19.00, got %s", lines[0].TaxAmount)
	s.Equal(types.TaxProviderVAT, lines[0].TaxProvider)
	s.Equal("DE", lines[0].TaxJurisdiction)
	s.True(lines[0].TotalAmount.Equal(decimal.NewFromInt(119)))
}

func (s *TaxServiceTestSuite) TestUnlistedEUMemberGetsDefaultVATRate() {
	svc := NewTaxService(s.params())
	lines := s.newLines(100)

	// Croatia is an EU member without an explicit table entry.
	err := svc.ApplyTax(s.GetContext(), lines, types.Address{Country: "HR"}, "EUR", s.now)
	s.NoError(err)

	s.True(lines[0].TaxAmount.Equal(decimal.NewFromInt(21)), "expected default 21%%, got %s", lines[0].TaxAmount)
}

func (s *TaxServiceTestSuite) TestUSWithExtendedProviderMapsLinesByPosition() {
	s.GetConfig().Billing.ExtendedTaxProviderEnabled = true
	stub := &stubTaxProvider{response: &taxprovider.CalculationResponse{
		Lines: []taxprovider.TaxLineResult{
			{TaxAmount: decimal.NewFromFloat(8.25), TaxRate: decimal.NewFromFloat(0.0825), Jurisdiction: "US-TX"},
			{TaxAmount: decimal.NewFromFloat(4.13), TaxRate: decimal.NewFromFloat(0.0825), Jurisdiction: "US-TX"},
		},
	}}
	s.SetTaxProvider(stub)

	svc := NewTaxService(s.params())
	lines := s.newLines(100, 50)

	err := svc.ApplyTax(s.GetContext(), lines, types.Address{Country: "US", State: "TX"}, "USD", s.now)
	s.NoError(err)
	s.Equal(1, stub.calls)

	s.True(lines[0].TaxAmount.Equal(decimal.NewFromFloat(8.25)))
	s.True(lines[1].TaxAmount.Equal(decimal.NewFromFloat(4.13)))
	s.Equal(types.TaxProviderExternal, lines[0].TaxProvider)
	s.Equal("US-TX", lines[0].TaxJurisdiction)
}

func (s *TaxServiceTestSuite) TestProviderFailureFallsBackToStandard() {
	s.GetConfig().Billing.ExtendedTaxProviderEnabled = true
	s.SetTaxProvider(&stubTaxProvider{err: ierr.NewError("provider down").Mark(ierr.ErrHTTPClient)})

	s.NoError(s.GetStores().TaxRate.Create(s.GetContext(), &tax.Rate{
		ID:            "txrate_tx",
		State:         "TX",
		Country:       "US",
		Percentage:    decimal.NewFromFloat(0.0625),
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))

	svc := NewTaxService(s.params())
	lines := s.newLines(100)

	err := svc.ApplyTax(s.GetContext(), lines, types.Address{Country: "US", State: "TX"}, "USD", s.now)
	s.NoError(err, "a provider failure must never fail the invoice")

	s.True(lines[0].TaxAmount.Equal(decimal.NewFromFloat(6.25)))
	s.Equal(types.TaxProviderStandard, lines[0].TaxProvider)
}

func (s *TaxServiceTestSuite) TestStandardMissingRateIsZeroPercent() {
	svc := NewTaxService(s.params())
	lines := s.newLines(100)

	err := svc.ApplyTax(s.GetContext(), lines, types.Address{Country: "CA", State: "ON"}, "CAD", s.now)
	s.NoError(err)

	s.True(lines[0].TaxAmount.IsZero())
	s.True(lines[0].TaxRate.IsZero())
	s.Equal(types.TaxProviderStandard, lines[0].TaxProvider)
	s.True(lines[0].TotalAmount.Equal(decimal.NewFromInt(100)))
}

func (s *TaxServiceTestSuite) TestStandardRespectsEffectiveWindow() {
	expired := s.now.AddDate(0, -1, 0)
	s.NoError(s.GetStores().TaxRate.Create(s.GetContext(), &tax.Rate{
		ID:            "txrate_old",
		Country:       "AU",
		Percentage:    decimal.NewFromFloat(0.10),
		EffectiveFrom: s.now.AddDate(-1, 0, 0),
		EffectiveTo:   &expired,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))

	svc := NewTaxService(s.params())
	lines := s.newLines(100)

	err := svc.ApplyTax(s.GetContext(), lines, types.Address{Country: "AU"}, "AUD", s.now)
	s.NoError(err)
	s.True(lines[0].TaxAmount.IsZero(), "expired rates do not apply")
}
