package invoice

import (
	"context"
	"time"
)

// Repository is the invoice store contract.
type Repository interface {
	// Create persists the invoice and its line items.
	Create(ctx context.Context, inv *Invoice) error

	Get(ctx context.Context, id string) (*Invoice, error)

	Update(ctx context.Context, inv *Invoice) error

	// CountByUserAndMonth counts the user's invoices created in the calendar
	// month containing at. Used for invoice number sequencing; the count is
	// not globally atomic, concurrent generation for the same user can race.
	CountByUserAndMonth(ctx context.Context, userID string, at time.Time) (int, error)
}
