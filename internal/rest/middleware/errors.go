package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/streamforge/billing/internal/errors"
)

// ErrorHandler renders the last error a handler attached with c.Error as a
// JSON error envelope. Handlers never write error responses themselves.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
	}
}
