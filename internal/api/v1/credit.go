package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamforge/billing/internal/api/dto"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/service"
)

type CreditHandler struct {
	service service.CreditService
	log     *logger.Logger
}

func NewCreditHandler(service service.CreditService, log *logger.Logger) *CreditHandler {
	return &CreditHandler{service: service, log: log}
}

// GrantCredit creates a credit balance for a user.
func (h *CreditHandler) GrantCredit(c *gin.Context) {
	var req dto.GrantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind credit grant request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GrantCredit(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
