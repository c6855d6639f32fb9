package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamforge/billing/internal/api/dto"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/service"
)

type PlanChangeHandler struct {
	service service.PlanChangeService
	log     *logger.Logger
}

func NewPlanChangeHandler(service service.PlanChangeService, log *logger.Logger) *PlanChangeHandler {
	return &PlanChangeHandler{service: service, log: log}
}

// ChangePlan accepts a plan change for a subscription. The response is
// synchronous; the invoice is generated asynchronously.
func (h *PlanChangeHandler) ChangePlan(c *gin.Context) {
	subscriptionID := c.Param("id")
	if subscriptionID == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind plan change request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ChangePlan(c.Request.Context(), subscriptionID, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// PreviewPlanChange computes the proration outcome without mutating state.
func (h *PlanChangeHandler) PreviewPlanChange(c *gin.Context) {
	subscriptionID := c.Param("id")
	if subscriptionID == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind plan change preview request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.PreviewPlanChange(c.Request.Context(), subscriptionID, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPlanChangeStatus reports the async workflow state of a request.
func (h *PlanChangeHandler) GetPlanChangeStatus(c *gin.Context) {
	requestID := c.Param("id")
	if requestID == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Plan change request ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetPlanChangeStatus(c.Request.Context(), requestID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
