package memory

import (
	"context"
	"time"

	"github.com/streamforge/billing/internal/domain/tax"
	ierr "github.com/streamforge/billing/internal/errors"
)

// TaxRateStore implements tax.Repository.
type TaxRateStore struct {
	*InMemoryStore[*tax.Rate]
}

func NewTaxRateStore() *TaxRateStore {
	return &TaxRateStore{InMemoryStore: NewInMemoryStore[*tax.Rate]()}
}

// FindRate prefers an exact (state, country) match and falls back to a
// country-wide rate. A miss returns nil, nil.
func (s *TaxRateStore) FindRate(ctx context.Context, state, country string, at time.Time) (*tax.Rate, error) {
	var countryWide *tax.Rate
	for _, r := range s.List(ctx, func(r *tax.Rate) bool {
		return r.Country == country && r.AppliesAt(at)
	}) {
		if r.State == state && state != "" {
			return r, nil
		}
		if r.State == "" {
			countryWide = r
		}
	}
	return countryWide, nil
}

func (s *TaxRateStore) Create(ctx context.Context, r *tax.Rate) error {
	if r == nil {
		return ierr.NewError("tax rate is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, r.ID, r)
}
