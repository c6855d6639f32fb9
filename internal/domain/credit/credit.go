// Package credit holds user credit balances and the FIFO application rules.
package credit

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// Credit is a user credit balance. RemainingAmount only ever decreases and
// never drops below zero; both invariants are enforced at the point of
// mutation.
type Credit struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Type            types.CreditType `json:"type"`
	Amount          decimal.Decimal  `json:"amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Currency        string           `json:"currency"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`

	// AppliedInvoiceID links the credit to the last invoice it was applied to.
	AppliedInvoiceID *string `json:"applied_invoice_id,omitempty"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// IsEligible reports whether the credit can be applied at t: a positive
// remaining balance and not expired.
func (c *Credit) IsEligible(t time.Time) bool {
	if !c.RemainingAmount.IsPositive() {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(t)
}

// Apply deducts amount from the remaining balance.
func (c *Credit) Apply(amount decimal.Decimal, invoiceID string) error {
	if amount.IsNegative() {
		return ierr.NewError("credit application amount cannot be negative").
			WithHint("Application amount must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(c.RemainingAmount) {
		return ierr.NewError("credit application exceeds remaining balance").
			WithHint("Cannot apply more than the remaining credit balance").
			WithReportableDetails(map[string]interface{}{
				"credit_id":        c.ID,
				"remaining_amount": c.RemainingAmount,
				"requested_amount": amount,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	c.RemainingAmount = c.RemainingAmount.Sub(amount)
	c.AppliedInvoiceID = &invoiceID
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Application is one credit's contribution to an invoice, in application order.
type Application struct {
	CreditID         string          `json:"credit_id"`
	AmountApplied    decimal.Decimal `json:"amount_applied"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// SortFIFO orders credits for application: credits with an expiration come
// before credits without one; among expiring credits the soonest expiration
// wins; ties and all non-expiring credits break by oldest creation first.
func SortFIFO(credits []*Credit) {
	sort.SliceStable(credits, func(i, j int) bool {
		a, b := credits[i], credits[j]
		switch {
		case a.ExpiresAt != nil && b.ExpiresAt == nil:
			return true
		case a.ExpiresAt == nil && b.ExpiresAt != nil:
			return false
		case a.ExpiresAt != nil && b.ExpiresAt != nil:
			if !a.ExpiresAt.Equal(*b.ExpiresAt) {
				return a.ExpiresAt.Before(*b.ExpiresAt)
			}
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// Repository is the credit store contract.
type Repository interface {
	Create(ctx context.Context, c *Credit) error
	FindEligibleByUser(ctx context.Context, userID string, at time.Time) ([]*Credit, error)
	Save(ctx context.Context, c *Credit) error
}
