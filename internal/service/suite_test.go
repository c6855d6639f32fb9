package service

import (
	"github.com/streamforge/billing/internal/domain/proration"
	"github.com/streamforge/billing/internal/integration/taxprovider"
	"github.com/streamforge/billing/internal/testutil"
)

// ServiceTestSuite wires ServiceParams over fresh in-memory stores for
// every test. Suites embed it and build the services they exercise.
type ServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	taxProvider taxprovider.Client
}

func (s *ServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.taxProvider = nil
}

// SetTaxProvider swaps in a test double for the external tax client.
func (s *ServiceTestSuite) SetTaxProvider(client taxprovider.Client) {
	s.taxProvider = client
}

func (s *ServiceTestSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:              s.GetLogger(),
		Config:              s.GetConfig(),
		DB:                  s.GetDB(),
		SubRepo:             stores.Subscription,
		PlanRepo:            stores.Plan,
		ChargeRepo:          stores.Charge,
		UsageRepo:           stores.Usage,
		CreditRepo:          stores.Credit,
		DiscountRepo:        stores.Discount,
		TaxRateRepo:         stores.TaxRate,
		InvoiceRepo:         stores.Invoice,
		PlanChangeRepo:      stores.PlanChange,
		EventPublisher:      s.GetPublisher(),
		TaxProviderClient:   s.taxProvider,
		ProrationCalculator: proration.NewCalculator(),
		TaxRateCache:        s.GetCache(),
	}
}
