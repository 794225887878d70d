package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"buildcrm/sharehub/internal/handler/middleware"
	jwtpkg "buildcrm/sharehub/pkg/jwt"
)

var ErrNoClaims = errors.New("claims not found in context")

func claimsFromContext(c *gin.Context) (*jwtpkg.Claims, error) {
	claimsVal, exists := c.Get(middleware.ContextKeyUserClaims)
	if !exists {
		return nil, ErrNoClaims
	}
	claims, ok := claimsVal.(*jwtpkg.Claims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// principalFromContext extracts the authenticated user id and tenant from the
// validated access token claims.
func principalFromContext(c *gin.Context) (uuid.UUID, string, error) {
	claims, err := claimsFromContext(c)
	if err != nil {
		return uuid.Nil, "", err
	}
	if claims.TenantID == "" {
		return uuid.Nil, "", ErrNoClaims
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return userID, claims.TenantID, nil
}
