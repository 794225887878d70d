package middleware

import (
	"github.com/gin-gonic/gin"

	jwtpkg "buildcrm/sharehub/pkg/jwt"
	"buildcrm/sharehub/pkg/response"
)

// RequirePermission checks that the authenticated principal's token carries
// the given capability. Must be used after JWTAuth middleware.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsVal, exists := c.Get(ContextKeyUserClaims)
		if !exists {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}
		claims, ok := claimsVal.(*jwtpkg.Claims)
		if !ok {
			response.Unauthorized(c, "invalid claims")
			c.Abort()
			return
		}

		for _, p := range claims.Permissions {
			if p == permission {
				c.Next()
				return
			}
		}

		response.Forbidden(c, permission+" permission required")
		c.Abort()
	}
}
