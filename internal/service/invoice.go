package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/api/dto"
	"github.com/streamforge/billing/internal/domain/invoice"
	"github.com/streamforge/billing/internal/domain/proration"
	"github.com/streamforge/billing/internal/domain/usage"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// CreateInvoiceParams carries everything the assembler needs to build one
// invoice: signed proration breakdowns and rated usage charges.
type CreateInvoiceParams struct {
	UserID         string
	SubscriptionID string
	Currency       string

	ProrationLines []proration.ProrationLine
	UsageCharges   []*usage.Charge

	PeriodStart *time.Time
	PeriodEnd   *time.Time
	DueDate     *time.Time
}

// InvoiceService assembles, persists and transitions invoices.
type InvoiceService interface {
	// CreateDraftInvoice builds line items from the proration breakdown and
	// usage charges, derives totals, assigns an invoice number and persists
	// the invoice in draft status.
	CreateDraftInvoice(ctx context.Context, params CreateInvoiceParams) (*invoice.Invoice, error)

	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	FinalizeInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	VoidInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) CreateDraftInvoice(ctx context.Context, params CreateInvoiceParams) (*invoice.Invoice, error) {
	if params.UserID == "" {
		return nil, ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		UserID:        params.UserID,
		InvoiceStatus: types.InvoiceStatusDraft,
		Currency:      params.Currency,
		PeriodStart:   params.PeriodStart,
		PeriodEnd:     params.PeriodEnd,
		EnvironmentID: types.GetEnvironmentID(ctx),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if params.SubscriptionID != "" {
		inv.SubscriptionID = &params.SubscriptionID
	}

	if params.DueDate != nil {
		due := params.DueDate.UTC()
		inv.DueDate = &due
	} else {
		due := now.AddDate(0, 0, s.Config.Billing.InvoiceDueDays)
		inv.DueDate = &due
	}

	number, err := s.generateInvoiceNumber(ctx, params.UserID, now)
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = number

	for _, line := range params.ProrationLines {
		start := line.PeriodStart
		end := line.PeriodEnd
		rate := line.Rate
		inv.LineItems = append(inv.LineItems, &invoice.InvoiceLineItem{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:     inv.ID,
			Description:   line.Description,
			ChargeType:    types.ChargeTypeProration,
			Quantity:      decimal.NewFromInt(1),
			UnitPrice:     line.Amount,
			Amount:        line.Amount,
			Currency:      params.Currency,
			PeriodStart:   &start,
			PeriodEnd:     &end,
			ProrationRate: &rate,
			EnvironmentID: inv.EnvironmentID,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		})
	}

	for _, charge := range params.UsageCharges {
		inv.LineItems = append(inv.LineItems, &invoice.InvoiceLineItem{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:     inv.ID,
			Description:   fmt.Sprintf("Usage: %s", charge.UsageType),
			ChargeType:    types.ChargeTypeUsage,
			Quantity:      charge.TotalQuantity,
			UnitPrice:     averageUnitPrice(charge),
			Amount:        charge.Amount,
			Currency:      params.Currency,
			PeriodStart:   params.PeriodStart,
			PeriodEnd:     params.PeriodEnd,
			EnvironmentID: inv.EnvironmentID,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		})
	}

	for _, li := range inv.LineItems {
		if err := li.Validate(); err != nil {
			return nil, err
		}
	}

	inv.RecalculateTotals()

	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist invoice").
			Mark(ierr.ErrDatabase)
	}

	s.Logger.Infow("draft invoice created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"user_id", inv.UserID,
		"total", inv.Total.String(),
		"line_items", len(inv.LineItems))

	return inv, nil
}

// generateInvoiceNumber builds {prefix}-{yearMonth}-{user8}-{seq}. The
// sequence counts the user's invoices in the calendar month; it is not
// globally atomic, a concurrent generation for the same user can collide.
func (s *invoiceService) generateInvoiceNumber(ctx context.Context, userID string, at time.Time) (string, error) {
	count, err := s.InvoiceRepo.CountByUserAndMonth(ctx, userID, at)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to determine invoice sequence").
			Mark(ierr.ErrDatabase)
	}

	userPart := userID
	if len(userPart) > 8 {
		userPart = userPart[:8]
	}
	return fmt.Sprintf("%s-%s-%s-%04d",
		s.Config.Billing.InvoicePrefix,
		at.Format("200601"),
		userPart,
		count+1), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.getInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

func (s *invoiceService) FinalizeInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.getInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Finalize(); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist invoice status").
			Mark(ierr.ErrDatabase)
	}
	s.Logger.Infow("invoice finalized", "invoice_id", inv.ID)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

func (s *invoiceService) VoidInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.getInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Void(); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist invoice status").
			Mark(ierr.ErrDatabase)
	}
	s.Logger.Infow("invoice voided", "invoice_id", inv.ID)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

func (s *invoiceService) getInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			WithReportableDetails(map[string]interface{}{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func averageUnitPrice(charge *usage.Charge) decimal.Decimal {
	if !charge.TotalQuantity.IsPositive() {
		return decimal.Zero
	}
	return charge.Amount.Div(charge.TotalQuantity).Round(4)
}
