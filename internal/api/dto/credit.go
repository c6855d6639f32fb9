package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/domain/credit"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// GrantCreditRequest creates a credit balance for a user.
type GrantCreditRequest struct {
	UserID    string           `json:"user_id" validate:"required"`
	Type      types.CreditType `json:"type" validate:"required"`
	Amount    decimal.Decimal  `json:"amount" validate:"required"`
	Currency  string           `json:"currency" validate:"required"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

func (r *GrantCreditRequest) Validate() error {
	if r.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Credit amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	switch r.Type {
	case types.CreditTypeRefund, types.CreditTypeService,
		types.CreditTypePromotional, types.CreditTypeProration:
	default:
		return ierr.NewError("invalid credit type").
			WithHint("Credit type must be one of: refund, service, promotional, proration").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToCredit converts the request to a credit domain model.
func (r *GrantCreditRequest) ToCredit(ctx context.Context) *credit.Credit {
	return &credit.Credit{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT),
		UserID:          r.UserID,
		Type:            r.Type,
		Amount:          r.Amount,
		RemainingAmount: r.Amount,
		Currency:        r.Currency,
		ExpiresAt:       r.ExpiresAt,
		EnvironmentID:   types.GetEnvironmentID(ctx),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}

// CreditResponse is the API shape of a credit.
type CreditResponse struct {
	*credit.Credit
}
