package main

import (
	"context"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/streamforge/billing/internal/api"
	v1 "github.com/streamforge/billing/internal/api/v1"
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
	"github.com/streamforge/billing/internal/publisher"
	"github.com/streamforge/billing/internal/repository/memory"
	"github.com/streamforge/billing/internal/service"
	"github.com/streamforge/billing/internal/types"
)

func main() {
	fx.New(
		fx.NopLogger,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			newDBClient,
			cache.NewInMemoryCache,
			publisher.NewKafkaPublisher,
			publisher.NewKafkaSubscriber,
			taxprovider.NewHTTPClient,
			proration.NewCalculator,

			newRepositories,
			newServiceParams,

			service.NewPlanChangeService,
			service.NewUsageService,
			service.NewCreditService,
			service.NewInvoiceService,
			service.NewInvoiceWorkerService,

			v1.NewPlanChangeHandler,
			v1.NewUsageHandler,
			v1.NewCreditHandler,
			v1.NewInvoiceHandler,
			newRouter,
		),
		fx.Invoke(startApp),
	).Run()
}

func newDBClient(cfg *config.Configuration, log *logger.Logger) (postgres.IClient, error) {
	return postgres.NewClient(cfg, log)
}

// Repositories bundles the store implementations wired into services.
// Durable persistence sits behind these interfaces; the in-memory stores
// back local runs and tests.
type Repositories struct {
	fx.Out

	Subscription subscription.Repository
	Plan         plan.Repository
	Charge       charge.Repository
	Usage        usage.Repository
	Credit       credit.Repository
	Discount     discount.Repository
	TaxRate      tax.Repository
	Invoice      invoice.Repository
	PlanChange   planchange.Repository
}

func newRepositories() Repositories {
	return Repositories{
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
}

type serviceParamsIn struct {
	fx.In

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

func newServiceParams(in serviceParamsIn) service.ServiceParams {
	return service.ServiceParams{
		Logger:              in.Logger,
		Config:              in.Config,
		DB:                  in.DB,
		SubRepo:             in.SubRepo,
		PlanRepo:            in.PlanRepo,
		ChargeRepo:          in.ChargeRepo,
		UsageRepo:           in.UsageRepo,
		CreditRepo:          in.CreditRepo,
		DiscountRepo:        in.DiscountRepo,
		TaxRateRepo:         in.TaxRateRepo,
		InvoiceRepo:         in.InvoiceRepo,
		PlanChangeRepo:      in.PlanChangeRepo,
		EventPublisher:      in.EventPublisher,
		TaxProviderClient:   in.TaxProviderClient,
		ProrationCalculator: in.ProrationCalculator,
		TaxRateCache:        in.TaxRateCache,
	}
}

func newRouter(
	planChange *v1.PlanChangeHandler,
	usageHandler *v1.UsageHandler,
	creditHandler *v1.CreditHandler,
	invoiceHandler *v1.InvoiceHandler,
	cfg *config.Configuration,
	log *logger.Logger,
) *gin.Engine {
	return api.NewRouter(api.Handlers{
		PlanChange: planChange,
		Usage:      usageHandler,
		Credit:     creditHandler,
		Invoice:    invoiceHandler,
	}, cfg, log)
}

func startApp(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	log *logger.Logger,
	router *gin.Engine,
	subscriber message.Subscriber,
	worker service.InvoiceWorkerService,
) error {
	mode := cfg.Deployment.Mode
	switch mode {
	case types.RunModeServer:
		startServer(lc, cfg, log, router)
	case types.RunModeWorker:
		startWorker(lc, cfg, log, subscriber, worker)
	case types.RunModeLocal:
		startServer(lc, cfg, log, router)
		startWorker(lc, cfg, log, subscriber, worker)
	default:
		log.Fatalf("unknown deployment mode: %s", mode)
	}
	return nil
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger, router *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting http server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("http server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping http server")
			return srv.Shutdown(ctx)
		},
	})
}

func startWorker(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	log *logger.Logger,
	subscriber message.Subscriber,
	worker service.InvoiceWorkerService,
) {
	workerCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			messages, err := subscriber.Subscribe(workerCtx, cfg.Kafka.Topic)
			if err != nil {
				cancel()
				return err
			}
			log.Infow("starting invoice worker", "topic", cfg.Kafka.Topic)

			handle := worker.Handler()
			go func() {
				for msg := range messages {
					if err := handle(msg); err != nil {
						// Nack for redelivery; the change request carries the
						// failure state.
						msg.Nack()
						continue
					}
					msg.Ack()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping invoice worker")
			cancel()
			return subscriber.Close()
		},
	})
}
