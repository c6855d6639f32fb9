package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/api/dto"
	"github.com/streamforge/billing/internal/domain/credit"
	"github.com/streamforge/billing/internal/domain/invoice"
	ierr "github.com/streamforge/billing/internal/errors"
)

// CreditService manages user credit balances and applies them to invoices
// in FIFO order.
type CreditService interface {
	GrantCredit(ctx context.Context, req dto.GrantCreditRequest) (*dto.CreditResponse, error)

	// ApplyCreditsToInvoice consumes eligible credits against the invoice's
	// amount due. Credits are walked FIFO (expiring first, soonest first,
	// ties by oldest creation); each application decrements both the credit
	// and the invoice remainder, stopping once the invoice is covered. Every
	// mutated credit is persisted. The returned applications preserve
	// application order.
	ApplyCreditsToInvoice(ctx context.Context, inv *invoice.Invoice) ([]credit.Application, error)
}

type creditService struct {
	ServiceParams
}

func NewCreditService(params ServiceParams) CreditService {
	return &creditService{ServiceParams: params}
}

func (s *creditService) GrantCredit(ctx context.Context, req dto.GrantCreditRequest) (*dto.CreditResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now().UTC()) {
		return nil, ierr.NewError("expires_at must be in the future").
			WithHint("Credit expiration must be a future time").
			Mark(ierr.ErrValidation)
	}

	c := req.ToCredit(ctx)
	if err := s.CreditRepo.Create(ctx, c); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist credit").
			Mark(ierr.ErrDatabase)
	}

	s.Logger.Infow("credit granted",
		"credit_id", c.ID,
		"user_id", c.UserID,
		"type", c.Type,
		"amount", c.Amount.String())

	return &dto.CreditResponse{Credit: c}, nil
}

func (s *creditService) ApplyCreditsToInvoice(ctx context.Context, inv *invoice.Invoice) ([]credit.Application, error) {
	if !inv.AmountDue.IsPositive() {
		return nil, nil
	}

	now := time.Now().UTC()
	credits, err := s.CreditRepo.FindEligibleByUser(ctx, inv.UserID, now)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load eligible credits").
			Mark(ierr.ErrDatabase)
	}

	// The repository already filters, but eligibility is cheap to re-check
	// and the invariant matters.
	credits = lo.Filter(credits, func(c *credit.Credit, _ int) bool {
		return c.IsEligible(now) && c.Currency == inv.Currency
	})
	credit.SortFIFO(credits)

	applications := make([]credit.Application, 0, len(credits))
	remaining := inv.AmountDue

	for _, c := range credits {
		if !remaining.IsPositive() {
			break
		}
		toApply := decimal.Min(c.RemainingAmount, remaining)
		if err := c.Apply(toApply, inv.ID); err != nil {
			return nil, err
		}
		if err := s.CreditRepo.Save(ctx, c); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to persist credit application").
				Mark(ierr.ErrDatabase)
		}
		if err := inv.ApplyCredit(toApply); err != nil {
			return nil, err
		}
		remaining = remaining.Sub(toApply)

		applications = append(applications, credit.Application{
			CreditID:         c.ID,
			AmountApplied:    toApply,
			RemainingBalance: c.RemainingAmount,
		})

		s.Logger.Debugw("credit applied to invoice",
			"credit_id", c.ID,
			"invoice_id", inv.ID,
			"amount_applied", toApply.String(),
			"remaining_balance", c.RemainingAmount.String())
	}

	return applications, nil
}
