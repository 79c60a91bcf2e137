package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sidang-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sidang-scheduler-api/pkg/errors"
	"github.com/noah-isme/sidang-scheduler-api/pkg/response"
)

// RequireRoles admits requests whose JWT claims carry one of roles. It must
// run after JWT; a request without claims is rejected as unauthorized.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot modify schedules"))
			c.Abort()
			return
		}
		c.Next()
	}
}
