package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ems-docs-api/internal/models"
	appErrors "github.com/noah-isme/ems-docs-api/pkg/errors"
	"github.com/noah-isme/ems-docs-api/pkg/response"
)

// RequireAdminDepartment only lets members of the admin department through. Must run after JWT.
func RequireAdminDepartment(adminDepartment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !models.CallerFromClaims(claims, adminDepartment).IsAdminDepartment {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin department only"))
			c.Abort()
			return
		}
		c.Next()
	}
}
