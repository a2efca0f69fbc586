package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/farmhub/farmhub-api/internal/access"
	"github.com/farmhub/farmhub-api/internal/middleware"
	"github.com/farmhub/farmhub-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func principalFromContext(c *gin.Context) access.Principal {
	return access.PrincipalFromClaims(claimsFromContext(c))
}
