package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/service"
)

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		token := auth[7:]

		session, err := authService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		// Expose the verified identity to handlers
		c.Set("userPubKey", session.PubKey)

		c.Next()
	}
}
