package subscription

import "context"

// Repository is the subscription store contract.
type Repository interface {
	// FindByID returns the subscription if it exists for the user,
	// regardless of status; callers check status themselves so they can
	// distinguish not-found from inactive.
	FindByID(ctx context.Context, id, userID string) (*Subscription, error)

	// Save upserts the subscription, preserving identity fields.
	Save(ctx context.Context, sub *Subscription) error
}
