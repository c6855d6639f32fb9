package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/streamforge/billing/internal/domain/discount"
	"github.com/streamforge/billing/internal/domain/invoice"
	"github.com/streamforge/billing/internal/types"
)

type DiscountServiceTestSuite struct {
	ServiceTestSuite
	discountService DiscountService
}

func TestDiscountService(t *testing.T) {
	suite.Run(t, new(DiscountServiceTestSuite))
}

func (s *DiscountServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.discountService = NewDiscountService(s.params())
}

func (s *DiscountServiceTestSuite) createDiscount(d *discount.Discount) *discount.Discount {
	d.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.NoError(s.GetStores().Discount.Create(s.GetContext(), d))
	return d
}

func (s *DiscountServiceTestSuite) newLines(amounts ...float64) []*invoice.InvoiceLineItem {
	lines := make([]*invoice.InvoiceLineItem, 0, len(amounts))
	for _, amount := range amounts {
		lines = append(lines, &invoice.InvoiceLineItem{
			ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			ChargeType: types.ChargeTypeSubscription,
			Quantity:   decimal.NewFromInt(1),
			Amount:     decimal.NewFromFloat(amount),
			Currency:   "USD",
		})
	}
	return lines
}

func (s *DiscountServiceTestSuite) TestPercentageAppliesToEveryLine() {
	s.createDiscount(&discount.Discount{
		ID:         "disc_10pct",
		Name:       "Loyalty 10%",
		Type:       types.DiscountTypePercentage,
		Percentage: decimal.NewFromInt(10),
		Stackable:  true,
	})
	lines := s.newLines(100, 50)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_10pct"})
	s.NoError(err)
	s.Require().Len(applied, 1)

	s.True(applied[0].Amount.Equal(decimal.NewFromInt(15)), "expected 15.00, got %s", applied[0].Amount)
	s.True(lines[0].DiscountAmount.Equal(decimal.NewFromInt(10)))
	s.True(lines[1].DiscountAmount.Equal(decimal.NewFromInt(5)))
	s.True(lines[0].TotalAmount.Equal(decimal.NewFromInt(90)))
}

func (s *DiscountServiceTestSuite) TestFixedAmountDistributesProportionally() {
	s.createDiscount(&discount.Discount{
		ID:        "disc_flat9",
		Name:      "Flat 9",
		Type:      types.DiscountTypeFixedAmount,
		Amount:    decimal.NewFromInt(9),
		Stackable: true,
	})
	lines := s.newLines(60, 30)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_flat9"})
	s.NoError(err)
	s.Require().Len(applied, 1)

	// 60/90 and 30/90 of the face value.
	s.True(lines[0].DiscountAmount.Equal(decimal.NewFromInt(6)))
	s.True(lines[1].DiscountAmount.Equal(decimal.NewFromInt(3)))
	s.True(applied[0].Amount.Equal(decimal.NewFromInt(9)))
}

func (s *DiscountServiceTestSuite) TestFixedAmountNeverExceedsFaceValue() {
	s.createDiscount(&discount.Discount{
		ID:        "disc_flat10",
		Name:      "Flat 10",
		Type:      types.DiscountTypeFixedAmount,
		Amount:    decimal.NewFromInt(10),
		Stackable: true,
	})
	// Rounded shares of a three-way split would sum past the face value
	// without the aggregate cap.
	lines := s.newLines(10, 10, 10)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_flat10"})
	s.NoError(err)
	s.Require().Len(applied, 1)
	s.True(applied[0].Amount.LessThanOrEqual(decimal.NewFromInt(10)))
}

func (s *DiscountServiceTestSuite) TestFixedAmountSkipsCreditLines() {
	s.createDiscount(&discount.Discount{
		ID:        "disc_flat10",
		Name:      "Flat 10",
		Type:      types.DiscountTypeFixedAmount,
		Amount:    decimal.NewFromInt(10),
		Stackable: true,
	})
	lines := s.newLines(100, -40)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_flat10"})
	s.NoError(err)
	s.Require().Len(applied, 1)

	s.True(lines[0].DiscountAmount.Equal(decimal.NewFromInt(10)))
	s.True(lines[1].DiscountAmount.IsZero(), "negative lines never absorb discount")
}

func (s *DiscountServiceTestSuite) TestHigherPriorityWinsRegardlessOfInputOrder() {
	s.createDiscount(&discount.Discount{
		ID:         "disc_low",
		Name:       "Low priority",
		Type:       types.DiscountTypePercentage,
		Percentage: decimal.NewFromInt(5),
		Priority:   1,
	})
	s.createDiscount(&discount.Discount{
		ID:         "disc_high",
		Name:       "High priority",
		Type:       types.DiscountTypePercentage,
		Percentage: decimal.NewFromInt(20),
		Priority:   10,
	})
	lines := s.newLines(100)

	// Both are non-stackable, so only the higher priority one applies.
	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_low", "disc_high"})
	s.NoError(err)
	s.Require().Len(applied, 1)
	s.Equal("disc_high", applied[0].DiscountID)
	s.True(lines[0].DiscountAmount.Equal(decimal.NewFromInt(20)))
}

func (s *DiscountServiceTestSuite) TestNonStackableFirstBlocksTheRest() {
	s.createDiscount(&discount.Discount{
		ID:         "disc_exclusive",
		Name:       "Exclusive",
		Type:       types.DiscountTypePercentage,
		Percentage: decimal.NewFromInt(30),
		Priority:   10,
		Stackable:  false,
	})
	s.createDiscount(&discount.Discount{
		ID:         "disc_stackable",
		Name:       "Stackable",
		Type:       types.DiscountTypePercentage,
		Percentage: decimal.NewFromInt(10),
		Priority:   5,
		Stackable:  true,
	})
	lines := s.newLines(100)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_exclusive", "disc_stackable"})
	s.NoError(err)
	s.Require().Len(applied, 1)
	s.Equal("disc_exclusive", applied[0].DiscountID)
}

func (s *DiscountServiceTestSuite) TestStackableDiscountsCombine() {
	s.createDiscount(&discount.Discount{
		ID:         "disc_a",
		Name:       "A",
		Type:       types.DiscountTypePercentage,
		Percentage: decimal.NewFromInt(10),
		Priority:   10,
		Stackable:  true,
	})
	s.createDiscount(&discount.Discount{
		ID:        "disc_b",
		Name:      "B",
		Type:      types.DiscountTypeFixedAmount,
		Amount:    decimal.NewFromInt(5),
		Priority:  5,
		Stackable: true,
	})
	lines := s.newLines(100)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_a", "disc_b"})
	s.NoError(err)
	s.Require().Len(applied, 2)
	s.True(lines[0].DiscountAmount.Equal(decimal.NewFromInt(15)))
}

func (s *DiscountServiceTestSuite) TestUnknownIDsAreIgnored() {
	s.createDiscount(&discount.Discount{
		ID:         "disc_known",
		Name:       "Known",
		Type:       types.DiscountTypePercentage,
		Percentage: decimal.NewFromInt(10),
	})
	lines := s.newLines(100)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, []string{"disc_missing", "disc_known"})
	s.NoError(err)
	s.Require().Len(applied, 1)
	s.Equal("disc_known", applied[0].DiscountID)
}

func (s *DiscountServiceTestSuite) TestNoDiscountIDsIsANoOp() {
	lines := s.newLines(100)

	applied, err := s.discountService.ApplyDiscounts(s.GetContext(), lines, nil)
	s.NoError(err)
	s.Empty(applied)
	s.True(lines[0].DiscountAmount.IsZero())
}
