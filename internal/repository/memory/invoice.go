package memory

import (
	"context"
	"time"

	"github.com/streamforge/billing/internal/domain/invoice"
	ierr "github.com/streamforge/billing/internal/errors"
)

// InvoiceStore implements invoice.Repository.
type InvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{InMemoryStore: NewInMemoryStore[*invoice.Invoice]()}
}

func (s *InvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, ok := s.InMemoryStore.Get(ctx, id)
	if !ok {
		return nil, nil
	}
	return inv, nil
}

func (s *InvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, inv.ID, inv)
}

func (s *InvoiceStore) CountByUserAndMonth(ctx context.Context, userID string, at time.Time) (int, error) {
	year, month := at.UTC().Year(), at.UTC().Month()
	return s.Count(ctx, func(inv *invoice.Invoice) bool {
		created := inv.CreatedAt.UTC()
		return inv.UserID == userID && created.Year() == year && created.Month() == month
	}), nil
}
