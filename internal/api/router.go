// Package api wires the HTTP surface: middleware chain, versioned routes
// and handlers.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/streamforge/billing/internal/api/v1"
	"github.com/streamforge/billing/internal/config"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/rest/middleware"
	"github.com/streamforge/billing/internal/types"
)

// Handlers groups every versioned handler the router mounts.
type Handlers struct {
	PlanChange *v1.PlanChangeHandler
	Usage      *v1.UsageHandler
	Credit     *v1.CreditHandler
	Invoice    *v1.InvoiceHandler
}

// NewRouter builds the gin engine with the standard middleware chain.
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.RunModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestContext(),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/v1")
	{
		subscriptions := apiV1.Group("/subscriptions")
		{
			subscriptions.POST("/:id/change-plan", handlers.PlanChange.ChangePlan)
			subscriptions.POST("/:id/change-plan/preview", handlers.PlanChange.PreviewPlanChange)
		}

		planChanges := apiV1.Group("/plan-changes")
		{
			planChanges.GET("/:id", handlers.PlanChange.GetPlanChangeStatus)
		}

		apiV1.POST("/usage", handlers.Usage.RecordUsage)
		apiV1.POST("/credits", handlers.Credit.GrantCredit)

		invoices := apiV1.Group("/invoices")
		{
			invoices.GET("/:id", handlers.Invoice.GetInvoice)
			invoices.POST("/:id/finalize", handlers.Invoice.FinalizeInvoice)
			invoices.POST("/:id/void", handlers.Invoice.VoidInvoice)
		}
	}

	return router
}
