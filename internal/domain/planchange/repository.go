package planchange

import "context"

// Repository is the plan change request store contract.
type Repository interface {
	// Create persists a new request. A request id is never reused; the id
	// is the idempotency key for the async phase.
	Create(ctx context.Context, r *Request) error

	Get(ctx context.Context, id string) (*Request, error)

	Update(ctx context.Context, r *Request) error

	// FindPendingBySubscription returns a request still awaiting invoice
	// generation for the subscription, or nil when there is none.
	FindPendingBySubscription(ctx context.Context, subscriptionID string) (*Request, error)
}
