package memory

import (
	"context"

	"github.com/streamforge/billing/internal/domain/plan"
	ierr "github.com/streamforge/billing/internal/errors"
)

// PlanStore implements plan.Repository.
type PlanStore struct {
	*InMemoryStore[*plan.Plan]
}

func NewPlanStore() *PlanStore {
	return &PlanStore{InMemoryStore: NewInMemoryStore[*plan.Plan]()}
}

func (s *PlanStore) FindByID(ctx context.Context, id string) (*plan.Plan, error) {
	p, ok := s.Get(ctx, id)
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (s *PlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, p.ID, p)
}
