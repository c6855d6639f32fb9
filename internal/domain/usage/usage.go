// Package usage holds metered usage records and the shapes produced by
// tiered usage rating.
package usage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// Record is a single metered usage event. The multiplier is derived from
// the usage type and context at record time and stored with the record so
// historical charges stay stable even if derivation rules change.
type Record struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	UserID         string          `json:"user_id"`
	UsageType      types.UsageType `json:"usage_type"`
	Quantity       decimal.Decimal `json:"quantity"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	Metadata       types.Metadata  `json:"metadata,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
	Billed         bool            `json:"billed"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// EffectiveQuantity is the quantity weighted by the stored multiplier.
func (r *Record) EffectiveQuantity() decimal.Decimal {
	return r.Quantity.Mul(r.Multiplier)
}

// TierUsage is one consumed pricing tier in a usage charge breakdown.
type TierUsage struct {
	From      decimal.Decimal  `json:"from"`
	UpTo      *decimal.Decimal `json:"up_to,omitempty"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
}

// Charge is the rated result for one usage type over a billing period,
// including the tier consumption breakdown for audit.
type Charge struct {
	UsageType     types.UsageType `json:"usage_type"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	Amount        decimal.Decimal `json:"amount"`
	Tiers         []TierUsage     `json:"tiers"`
}

// Repository is the usage store contract.
type Repository interface {
	Create(ctx context.Context, r *Record) error

	// ListUnbilled returns unbilled records for the subscription recorded
	// within [periodStart, periodEnd).
	ListUnbilled(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) ([]*Record, error)

	// SumQuantityForPeriod aggregates effective quantity for one usage type,
	// used for threshold checks at record time.
	SumQuantityForPeriod(ctx context.Context, subscriptionID string, usageType types.UsageType, periodStart, periodEnd time.Time) (decimal.Decimal, error)

	// MarkBilled flags records as billed once they land on an invoice.
	MarkBilled(ctx context.Context, ids []string) error
}
