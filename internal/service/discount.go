package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/samber/lo"

	"github.com/streamforge/billing/internal/domain/discount"
	"github.com/streamforge/billing/internal/domain/invoice"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// DiscountService applies eligible discounts to invoice line items.
//
// Discounts are walked in descending priority. The first applied discount
// is always accepted; after that, a candidate only applies when it is
// stackable and everything already applied is stackable too.
type DiscountService interface {
	ApplyDiscounts(ctx context.Context, lines []*invoice.InvoiceLineItem, discountIDs []string) ([]discount.AppliedDiscount, error)
}

type discountService struct {
	ServiceParams
}

func NewDiscountService(params ServiceParams) DiscountService {
	return &discountService{ServiceParams: params}
}

func (s *discountService) ApplyDiscounts(ctx context.Context, lines []*invoice.InvoiceLineItem, discountIDs []string) ([]discount.AppliedDiscount, error) {
	if len(discountIDs) == 0 || len(lines) == 0 {
		return nil, nil
	}

	discounts, err := s.DiscountRepo.ListByIDs(ctx, discountIDs)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load discounts").
			Mark(ierr.ErrDatabase)
	}

	sort.SliceStable(discounts, func(i, j int) bool {
		return discounts[i].Priority > discounts[j].Priority
	})

	applied := make([]discount.AppliedDiscount, 0, len(discounts))
	appliedModels := make([]*discount.Discount, 0, len(discounts))

	for _, d := range discounts {
		if !s.canStack(d, appliedModels) {
			s.Logger.Debugw("discount skipped by stackability",
				"discount_id", d.ID,
				"stackable", d.Stackable)
			continue
		}

		var amount decimal.Decimal
		switch d.Type {
		case types.DiscountTypePercentage:
			amount = s.applyPercentage(lines, d)
		case types.DiscountTypeFixedAmount:
			amount = s.applyFixedAmount(lines, d)
		default:
			return nil, ierr.NewErrorf("unknown discount type: %s", d.Type).
				WithHint("Discount type must be percentage or fixed_amount").
				Mark(ierr.ErrValidation)
		}

		if amount.IsZero() {
			continue
		}
		applied = append(applied, discount.AppliedDiscount{
			DiscountID: d.ID,
			Name:       d.Name,
			Amount:     amount,
		})
		appliedModels = append(appliedModels, d)
	}

	for _, line := range lines {
		line.RecomputeTotal()
	}
	return applied, nil
}

func (s *discountService) canStack(d *discount.Discount, applied []*discount.Discount) bool {
	if len(applied) == 0 {
		return true
	}
	if !d.Stackable {
		return false
	}
	return lo.EveryBy(applied, func(a *discount.Discount) bool { return a.Stackable })
}

// applyPercentage reduces every line by the same fraction of its amount.
func (s *discountService) applyPercentage(lines []*invoice.InvoiceLineItem, d *discount.Discount) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		reduction := line.Amount.Mul(d.Percentage).Div(decimal.NewFromInt(100)).Round(2)
		line.DiscountAmount = line.DiscountAmount.Add(reduction)
		total = total.Add(reduction)
	}
	return total
}

// applyFixedAmount distributes the discount's face value across lines in
// proportion to each line's share of the total amount, never exceeding the
// face value in aggregate.
func (s *discountService) applyFixedAmount(lines []*invoice.InvoiceLineItem, d *discount.Discount) decimal.Decimal {
	lineTotal := decimal.Zero
	for _, line := range lines {
		if line.Amount.IsPositive() {
			lineTotal = lineTotal.Add(line.Amount)
		}
	}
	if !lineTotal.IsPositive() {
		return decimal.Zero
	}

	remaining := d.Amount
	total := decimal.Zero
	for _, line := range lines {
		if !remaining.IsPositive() {
			break
		}
		if !line.Amount.IsPositive() {
			continue
		}
		share := d.Amount.Mul(line.Amount).Div(lineTotal).Round(2)
		reduction := decimal.Min(share, remaining)
		line.DiscountAmount = line.DiscountAmount.Add(reduction)
		remaining = remaining.Sub(reduction)
		total = total.Add(reduction)
	}
	return total
}
