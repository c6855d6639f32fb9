package memory

import (
	"context"
	"time"

	"github.com/streamforge/billing/internal/domain/credit"
	ierr "github.com/streamforge/billing/internal/errors"
)

// CreditStore implements credit.Repository.
type CreditStore struct {
	*InMemoryStore[*credit.Credit]
}

func NewCreditStore() *CreditStore {
	return &CreditStore{InMemoryStore: NewInMemoryStore[*credit.Credit]()}
}

func (s *CreditStore) Create(ctx context.Context, c *credit.Credit) error {
	if c == nil {
		return ierr.NewError("credit is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *CreditStore) FindEligibleByUser(ctx context.Context, userID string, at time.Time) ([]*credit.Credit, error) {
	return s.List(ctx, func(c *credit.Credit) bool {
		return c.UserID == userID && c.IsEligible(at)
	}), nil
}

func (s *CreditStore) Save(ctx context.Context, c *credit.Credit) error {
	if c == nil {
		return ierr.NewError("credit is nil").Mark(ierr.ErrValidation)
	}
	s.Upsert(ctx, c.ID, c)
	return nil
}
