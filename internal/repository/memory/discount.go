package memory

import (
	"context"

	"github.com/streamforge/billing/internal/domain/discount"
	ierr "github.com/streamforge/billing/internal/errors"
)

// DiscountStore implements discount.Repository.
type DiscountStore struct {
	*InMemoryStore[*discount.Discount]
}

func NewDiscountStore() *DiscountStore {
	return &DiscountStore{InMemoryStore: NewInMemoryStore[*discount.Discount]()}
}

func (s *DiscountStore) ListByIDs(ctx context.Context, ids []string) ([]*discount.Discount, error) {
	out := make([]*discount.Discount, 0, len(ids))
	for _, id := range ids {
		if d, ok := s.Get(ctx, id); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *DiscountStore) Create(ctx context.Context, d *discount.Discount) error {
	if d == nil {
		return ierr.NewError("discount is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, d.ID, d)
}
