package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/domain/usage"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// RecordUsageRequest records one metered usage event for a subscription.
type RecordUsageRequest struct {
	SubscriptionID string          `json:"subscription_id" validate:"required"`
	UserID         string          `json:"user_id" validate:"required"`
	UsageType      types.UsageType `json:"usage_type" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity" validate:"required"`
	Metadata       types.Metadata  `json:"metadata,omitempty"`
	RecordedAt     *time.Time      `json:"recorded_at,omitempty"`
}

func (r *RecordUsageRequest) Validate() error {
	if r.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.UsageType == "" {
		return ierr.NewError("usage_type is required").
			WithHint("Usage type is required").
			Mark(ierr.ErrValidation)
	}
	if !r.Quantity.IsPositive() {
		return ierr.NewError("quantity must be positive").
			WithHint("Usage quantity must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToRecord converts the request to a usage record. The multiplier is
// derived here, at record time, and stored with the record.
func (r *RecordUsageRequest) ToRecord(ctx context.Context) *usage.Record {
	recordedAt := time.Now().UTC()
	if r.RecordedAt != nil {
		recordedAt = r.RecordedAt.UTC()
	}
	return &usage.Record{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD),
		SubscriptionID: r.SubscriptionID,
		UserID:         r.UserID,
		UsageType:      r.UsageType,
		Quantity:       r.Quantity,
		Multiplier:     usage.DeriveMultiplier(r.UsageType, r.Metadata),
		Metadata:       r.Metadata,
		RecordedAt:     recordedAt,
		EnvironmentID:  types.GetEnvironmentID(ctx),
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// UsageRecordResponse is the API shape of a recorded usage event.
type UsageRecordResponse struct {
	*usage.Record
}
