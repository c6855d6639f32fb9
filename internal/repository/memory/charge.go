package memory

import (
	"context"
	"sort"
	"time"

	"github.com/streamforge/billing/internal/domain/charge"
	ierr "github.com/streamforge/billing/internal/errors"
)

// ChargeStore implements charge.Repository.
type ChargeStore struct {
	*InMemoryStore[*charge.Charge]
}

func NewChargeStore() *ChargeStore {
	return &ChargeStore{InMemoryStore: NewInMemoryStore[*charge.Charge]()}
}

func (s *ChargeStore) Create(ctx context.Context, c *charge.Charge) error {
	if c == nil {
		return ierr.NewError("charge is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *ChargeStore) ListBySubscriptionPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) ([]*charge.Charge, error) {
	charges := s.List(ctx, func(c *charge.Charge) bool {
		return c.SubscriptionID == subscriptionID &&
			c.PeriodStart.Before(periodEnd) &&
			c.PeriodEnd.After(periodStart)
	})
	sort.Slice(charges, func(i, j int) bool { return charges[i].CreatedAt.Before(charges[j].CreatedAt) })
	return charges, nil
}
