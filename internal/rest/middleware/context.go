package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/streamforge/billing/internal/types"
)

// RequestContext seeds the request context with request, tenant and
// environment identifiers from the inbound headers.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = types.GenerateUUID()
		}
		ctx = types.SetRequestID(ctx, requestID)

		if tenantID := c.GetHeader("X-Tenant-ID"); tenantID != "" {
			ctx = types.SetTenantID(ctx, tenantID)
		}
		if environmentID := c.GetHeader("X-Environment-ID"); environmentID != "" {
			ctx = types.SetEnvironmentID(ctx, environmentID)
		}

		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
