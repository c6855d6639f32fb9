package plan

import "context"

// Repository is the plan store contract.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Plan, error)
	Create(ctx context.Context, p *Plan) error
}
