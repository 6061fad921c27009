package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authmodels "token-management-backend/internal/features/auth/models"
)

const (
	ContextWalletAddress = "wallet_address"
	ContextRole          = "role"
)

type TokenParser interface {
	ParseToken(token string) (*authmodels.Claims, error)
}

// RequireSession gates a route on a valid bearer session token and
// exposes the decoded principal through the gin context.
func RequireSession(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}

		token := header
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ContextWalletAddress, claims.WalletAddress)
		c.Set(ContextRole, string(claims.Role))
		c.Next()
	}
}
