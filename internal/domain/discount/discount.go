// Package discount holds discount entities applied to invoice line items.
package discount

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// Discount is a percentage or fixed-amount reduction. Priority orders
// application (higher first); Stackable gates combination with others.
type Discount struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Type       types.DiscountType `json:"type"`
	Percentage decimal.Decimal    `json:"percentage,omitempty"`
	Amount     decimal.Decimal    `json:"amount,omitempty"`
	Currency   string             `json:"currency,omitempty"`
	Priority   int                `json:"priority"`
	Stackable  bool               `json:"stackable"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// AppliedDiscount is one discount's contribution to an invoice.
type AppliedDiscount struct {
	DiscountID string          `json:"discount_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// Repository is the discount store contract.
type Repository interface {
	ListByIDs(ctx context.Context, ids []string) ([]*Discount, error)
	Create(ctx context.Context, d *Discount) error
}
