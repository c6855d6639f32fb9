package memory

import (
	"context"

	"github.com/streamforge/billing/internal/domain/subscription"
	ierr "github.com/streamforge/billing/internal/errors"
)

// SubscriptionStore implements subscription.Repository.
type SubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{InMemoryStore: NewInMemoryStore[*subscription.Subscription]()}
}

func (s *SubscriptionStore) FindByID(ctx context.Context, id, userID string) (*subscription.Subscription, error) {
	sub, ok := s.Get(ctx, id)
	if !ok || sub.UserID != userID {
		return nil, nil
	}
	return sub, nil
}

func (s *SubscriptionStore) Save(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription is nil").Mark(ierr.ErrValidation)
	}
	s.Upsert(ctx, sub.ID, sub)
	return nil
}
