package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/uniodonto/urede-api/internal/models"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
	"github.com/uniodonto/urede-api/pkg/response"
)

// RequirePapel enforces role-based access control for routes.
func RequirePapel(allowed ...models.Papel) gin.HandlerFunc {
	allowedPapeis := make(map[models.Papel]struct{}, len(allowed))
	for _, p := range allowed {
		allowedPapeis[p] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowedPapeis[claims.Papel]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
