// Package tax holds the internal tax rate table entities.
package tax

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// Rate is one internal tax rate for a (state, country) region, valid
// between EffectiveFrom and EffectiveTo.
type Rate struct {
	ID            string          `json:"id"`
	State         string          `json:"state,omitempty"`
	Country       string          `json:"country"`
	Percentage    decimal.Decimal `json:"percentage"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel
}

// AppliesAt reports whether the rate is effective at t.
func (r *Rate) AppliesAt(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || t.Before(*r.EffectiveTo)
}

// Repository is the tax rate store contract.
type Repository interface {
	// FindRate returns the rate for the region effective at the given time,
	// or nil when no rate matches. Absence is not an error: the standard
	// strategy treats it as 0%.
	FindRate(ctx context.Context, state, country string, at time.Time) (*Rate, error)

	Create(ctx context.Context, r *Rate) error
}
