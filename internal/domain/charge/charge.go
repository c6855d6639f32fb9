// Package charge holds billed charges within a subscription period, the
// inputs to unused-time credit calculation.
package charge

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// Charge is an amount already billed to a subscription for a period.
type Charge struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	UserID         string          `json:"user_id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Currency       string          `json:"currency"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// Repository is the charge store contract.
type Repository interface {
	Create(ctx context.Context, c *Charge) error

	// ListBySubscriptionPeriod returns charges overlapping the given period.
	ListBySubscriptionPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) ([]*Charge, error)
}
