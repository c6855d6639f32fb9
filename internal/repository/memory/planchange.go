package memory

import (
	"context"

	"github.com/streamforge/billing/internal/domain/planchange"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// PlanChangeStore implements planchange.Repository.
type PlanChangeStore struct {
	*InMemoryStore[*planchange.Request]
}

func NewPlanChangeStore() *PlanChangeStore {
	return &PlanChangeStore{InMemoryStore: NewInMemoryStore[*planchange.Request]()}
}

func (s *PlanChangeStore) Create(ctx context.Context, r *planchange.Request) error {
	if r == nil {
		return ierr.NewError("plan change request is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, r.ID, r)
}

func (s *PlanChangeStore) Get(ctx context.Context, id string) (*planchange.Request, error) {
	r, ok := s.InMemoryStore.Get(ctx, id)
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (s *PlanChangeStore) Update(ctx context.Context, r *planchange.Request) error {
	if r == nil {
		return ierr.NewError("plan change request is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, r.ID, r)
}

func (s *PlanChangeStore) FindPendingBySubscription(ctx context.Context, subscriptionID string) (*planchange.Request, error) {
	pending := s.List(ctx, func(r *planchange.Request) bool {
		return r.SubscriptionID == subscriptionID &&
			r.PlanChangeStatus == types.PlanChangeStatusPendingInvoice
	})
	if len(pending) == 0 {
		return nil, nil
	}
	return pending[0], nil
}
