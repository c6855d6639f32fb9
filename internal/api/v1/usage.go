package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamforge/billing/internal/api/dto"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/service"
)

type UsageHandler struct {
	service service.UsageService
	log     *logger.Logger
}

func NewUsageHandler(service service.UsageService, log *logger.Logger) *UsageHandler {
	return &UsageHandler{service: service, log: log}
}

// RecordUsage records one metered usage event.
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	var req dto.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind usage record request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordUsage(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
