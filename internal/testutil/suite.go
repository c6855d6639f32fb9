package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/streamforge/billing/internal/cache"
	"github.com/streamforge/billing/internal/config"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/repository/memory"
	"github.com/streamforge/billing/internal/types"
)

// Stores bundles every in-memory repository a service suite can need.
type Stores struct {
	Subscription *memory.SubscriptionStore
	Plan         *memory.PlanStore
	Charge       *memory.ChargeStore
	Usage        *memory.UsageStore
	Credit       *memory.CreditStore
	Discount     *memory.DiscountStore
	TaxRate      *memory.TaxRateStore
	Invoice      *memory.InvoiceStore
	PlanChange   *memory.PlanChangeStore
}

// BaseServiceTestSuite is the shared fixture for service tests: fresh
// in-memory stores, a capturing publisher, a pass-through DB and a context
// seeded with tenant and environment ids.
type BaseServiceTestSuite struct {
	suite.Suite

	ctx       context.Context
	stores    Stores
	db        *MockDB
	publisher *InMemoryPublisher
	logger    *logger.Logger
	config    *config.Configuration
	cache     *cache.Cache
}

// SetupTest initializes fresh stores before every test.
func (s *BaseServiceTestSuite) SetupTest() {
	ctx := context.Background()
	ctx = types.SetTenantID(ctx, types.DefaultTenantID)
	ctx = types.SetEnvironmentID(ctx, "env_test")
	ctx = types.SetUserID(ctx, "user_test")
	s.ctx = ctx

	s.stores = Stores{
		Subscription: memory.NewSubscriptionStore(),
		Plan:         memory.NewPlanStore(),
		Charge:       memory.NewChargeStore(),
		Usage:        memory.NewUsageStore(),
		Credit:       memory.NewCreditStore(),
		Discount:     memory.NewDiscountStore(),
		TaxRate:      memory.NewTaxRateStore(),
		Invoice:      memory.NewInvoiceStore(),
		PlanChange:   memory.NewPlanChangeStore(),
	}
	s.db = NewMockDB()
	s.publisher = NewInMemoryPublisher()
	s.logger = logger.GetLogger()
	s.config = config.GetDefaultConfig()
	s.cache = cache.NewInMemoryCache()
}

// TearDownTest exists so embedding suites can call through uniformly.
func (s *BaseServiceTestSuite) TearDownTest() {}

func (s *BaseServiceTestSuite) GetContext() context.Context       { return s.ctx }
func (s *BaseServiceTestSuite) GetStores() Stores                 { return s.stores }
func (s *BaseServiceTestSuite) GetDB() *MockDB                    { return s.db }
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryPublisher  { return s.publisher }
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger         { return s.logger }
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration  { return s.config }
func (s *BaseServiceTestSuite) GetCache() *cache.Cache            { return s.cache }
