package events

import "context"

// Publisher delivers domain events to interested consumers. Delivery is
// at-least-once; order is preserved within a single PublishAll call.
type Publisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
