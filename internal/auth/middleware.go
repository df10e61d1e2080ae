package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/config"
	"github.com/taylorsterlingwrites/threshold-compass/internal/response"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

// NewProvider picks the provider for cfg.AuthMode.
func NewProvider(cfg *config.Config, users storage.UserRepository, logger internal.Logger) Provider {
	if cfg.AuthMode == "jwt" {
		return NewJWTAuthProvider(cfg.JWTSecret, users, logger)
	}
	return NewTokenAuthProvider(users, logger)
}

// AuthMiddleware stores the authenticated *internal.User under "user".
func AuthMiddleware(provider Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token != "" {
				user, err := provider.Authenticate(c.Request.Context(), token)
				if err == nil {
					c.Set("user", user)
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized())
	}
}
