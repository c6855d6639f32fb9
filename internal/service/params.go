package service

import (
	"github.com/streamforge/billing/internal/cache"
	"github.com/streamforge/billing/internal/config"
	"github.com/streamforge/billing/internal/domain/charge"
	"github.com/streamforge/billing/internal/domain/credit"
	"github.com/streamforge/billing/internal/domain/discount"
	"github.com/streamforge/billing/internal/domain/events"
	"github.com/streamforge/billing/internal/domain/invoice"
	"github.com/streamforge/billing/internal/domain/plan"
	"github.com/streamforge/billing/internal/domain/planchange"
	"github.com/streamforge/billing/internal/domain/proration"
	"github.com/streamforge/billing/internal/domain/subscription"
	"github.com/streamforge/billing/internal/domain/tax"
	"github.com/streamforge/billing/internal/domain/usage"
	"github.com/streamforge/billing/internal/integration/taxprovider"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/postgres"
)

// ServiceParams bundles every dependency a service can need. Services embed
// it and pick what they use; constructors stay one-argument and wiring
// stays explicit.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	SubRepo        subscription.Repository
	PlanRepo       plan.Repository
	ChargeRepo     charge.Repository
	UsageRepo      usage.Repository
	CreditRepo     credit.Repository
	DiscountRepo   discount.Repository
	TaxRateRepo    tax.Repository
	InvoiceRepo    invoice.Repository
	PlanChangeRepo planchange.Repository

	EventPublisher      events.Publisher
	TaxProviderClient   taxprovider.Client
	ProrationCalculator proration.Calculator
	TaxRateCache        *cache.Cache
}
