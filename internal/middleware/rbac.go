package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/models"
	appErrors "github.com/noah-isme/facility-admin-api/pkg/errors"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

// RBAC admits requests whose claims carry one of the allowed roles.
func RBAC(allowed ...models.Role) gin.HandlerFunc {
	roles := make(map[models.Role]struct{}, len(allowed))
	for _, r := range allowed {
		roles[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := roles[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly restricts a route group to the admin role.
func AdminOnly() gin.HandlerFunc {
	return RBAC(models.RoleAdmin)
}
