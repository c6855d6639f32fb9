package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/domain/usage"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// UsageStore implements usage.Repository.
type UsageStore struct {
	*InMemoryStore[*usage.Record]
}

func NewUsageStore() *UsageStore {
	return &UsageStore{InMemoryStore: NewInMemoryStore[*usage.Record]()}
}

func (s *UsageStore) Create(ctx context.Context, r *usage.Record) error {
	if r == nil {
		return ierr.NewError("usage record is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, r.ID, r)
}

func (s *UsageStore) ListUnbilled(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) ([]*usage.Record, error) {
	records := s.List(ctx, func(r *usage.Record) bool {
		return r.SubscriptionID == subscriptionID &&
			!r.Billed &&
			!r.RecordedAt.Before(periodStart) &&
			r.RecordedAt.Before(periodEnd)
	})
	sort.Slice(records, func(i, j int) bool { return records[i].RecordedAt.Before(records[j].RecordedAt) })
	return records, nil
}

func (s *UsageStore) SumQuantityForPeriod(ctx context.Context, subscriptionID string, usageType types.UsageType, periodStart, periodEnd time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range s.List(ctx, func(r *usage.Record) bool {
		return r.SubscriptionID == subscriptionID &&
			r.UsageType == usageType &&
			!r.RecordedAt.Before(periodStart) &&
			r.RecordedAt.Before(periodEnd)
	}) {
		total = total.Add(r.EffectiveQuantity())
	}
	return total, nil
}

func (s *UsageStore) MarkBilled(ctx context.Context, ids []string) error {
	for _, id := range ids {
		r, ok := s.Get(ctx, id)
		if !ok {
			return ierr.NewErrorf("usage record not found: %s", id).
				WithHint("Usage record not found").
				Mark(ierr.ErrNotFound)
		}
		r.Billed = true
		s.Upsert(ctx, id, r)
	}
	return nil
}
