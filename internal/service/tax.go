package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/cache"
	"github.com/streamforge/billing/internal/domain/invoice"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/integration/taxprovider"
	"github.com/streamforge/billing/internal/types"
)

// euVATRates is the flat per-country VAT table. EU members not listed
// here fall back to euDefaultVATRate.
var euVATRates = map[string]decimal.Decimal{
	"DE": decimal.NewFromFloat(0.19),
	"FR": decimal.NewFromFloat(0.20),
	"IT": decimal.NewFromFloat(0.22),
	"ES": decimal.NewFromFloat(0.21),
	"NL": decimal.NewFromFloat(0.21),
	"BE": decimal.NewFromFloat(0.21),
	"AT": decimal.NewFromFloat(0.20),
	"IE": decimal.NewFromFloat(0.23),
	"PT": decimal.NewFromFloat(0.23),
	"FI": decimal.NewFromFloat(0.24),
	"SE": decimal.NewFromFloat(0.25),
	"DK": decimal.NewFromFloat(0.25),
	"PL": decimal.NewFromFloat(0.23),
	"HU": decimal.NewFromFloat(0.27),
}

var euDefaultVATRate = decimal.NewFromFloat(0.21)

// TaxService applies jurisdiction-appropriate tax to invoice line items.
// Strategy selection is address driven and evaluated once per invoice.
type TaxService interface {
	// ApplyTax mutates the lines in place, filling TaxAmount, TaxRate,
	// TaxProvider and TaxJurisdiction, and recomputes each line's total.
	ApplyTax(ctx context.Context, lines []*invoice.InvoiceLineItem, address types.Address, currency string, at time.Time) error
}

type taxService struct {
	ServiceParams
}

func NewTaxService(params ServiceParams) TaxService {
	return &taxService{ServiceParams: params}
}

func (s *taxService) ApplyTax(ctx context.Context, lines []*invoice.InvoiceLineItem, address types.Address, currency string, at time.Time) error {
	if len(lines) == 0 {
		return nil
	}

	var err error
	switch {
	case address.IsEUCountry():
		s.applyVAT(lines, address)
	case address.IsUS() && s.Config.Billing.ExtendedTaxProviderEnabled:
		err = s.applyExternal(ctx, lines, address, currency)
		if err != nil {
			// The invoice must never fail because the provider did.
			s.Logger.Warnw("external tax provider failed, falling back to standard rates",
				"country", address.Country,
				"state", address.State,
				"error", err)
			err = s.applyStandard(ctx, lines, address, at)
		}
	default:
		err = s.applyStandard(ctx, lines, address, at)
	}
	if err != nil {
		return err
	}

	for _, line := range lines {
		line.RecomputeTotal()
	}
	return nil
}

func (s *taxService) applyVAT(lines []*invoice.InvoiceLineItem, address types.Address) {
	rate, ok := euVATRates[address.Country]
	if !ok {
		rate = euDefaultVATRate
	}
	for _, line := range lines {
		line.TaxRate = rate
		line.TaxAmount = line.Amount.Mul(rate).Round(2)
		line.TaxProvider = types.TaxProviderVAT
		line.TaxJurisdiction = address.Country
	}
}

func (s *taxService) applyExternal(ctx context.Context, lines []*invoice.InvoiceLineItem, address types.Address, currency string) error {
	req := taxprovider.CalculationRequest{
		Currency: currency,
		Address:  address,
		Lines:    make([]taxprovider.TaxLine, 0, len(lines)),
	}
	for _, line := range lines {
		req.Lines = append(req.Lines, taxprovider.TaxLine{
			Description: line.Description,
			Amount:      line.Amount,
		})
	}

	resp, err := s.TaxProviderClient.CalculateTax(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Lines) != len(lines) {
		return ierr.NewErrorf("tax provider returned %d lines for %d requested", len(resp.Lines), len(lines)).
			WithHint("Tax provider response did not match the request").
			Mark(ierr.ErrHTTPClient)
	}

	// Response lines map back onto request lines by position.
	for i, line := range lines {
		result := resp.Lines[i]
		line.TaxAmount = result.TaxAmount.Round(2)
		line.TaxRate = result.TaxRate
		line.TaxProvider = types.TaxProviderExternal
		line.TaxJurisdiction = result.Jurisdiction
	}
	return nil
}

func (s *taxService) applyStandard(ctx context.Context, lines []*invoice.InvoiceLineItem, address types.Address, at time.Time) error {
	rate, jurisdiction, err := s.standardRate(ctx, address, at)
	if err != nil {
		return err
	}
	for _, line := range lines {
		line.TaxRate = rate
		line.TaxAmount = line.Amount.Mul(rate).Round(2)
		line.TaxProvider = types.TaxProviderStandard
		line.TaxJurisdiction = jurisdiction
	}
	return nil
}

// standardRate resolves the internal table rate for the address region at
// the given time. A missing rate is 0%, never an error.
func (s *taxService) standardRate(ctx context.Context, address types.Address, at time.Time) (decimal.Decimal, string, error) {
	cacheKey := fmt.Sprintf("taxrate:%s:%s:%s", address.State, address.Country, at.UTC().Format("2006-01-02"))
	if s.TaxRateCache != nil {
		if cached, ok := s.TaxRateCache.Get(cacheKey); ok {
			if rate, ok := cache.Typed[decimal.Decimal](cached); ok {
				return rate, s.jurisdictionFor(address), nil
			}
		}
	}

	r, err := s.TaxRateRepo.FindRate(ctx, address.State, address.Country, at)
	if err != nil {
		return decimal.Zero, "", err
	}

	rate := decimal.Zero
	if r != nil {
		rate = r.Percentage
	}
	if s.TaxRateCache != nil {
		s.TaxRateCache.Set(cacheKey, rate, cache.DefaultExpiry)
	}
	return rate, s.jurisdictionFor(address), nil
}

func (s *taxService) jurisdictionFor(address types.Address) string {
	if address.State != "" {
		return fmt.Sprintf("%s-%s", address.Country, address.State)
	}
	return address.Country
}
