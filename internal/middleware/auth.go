package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
)

const currentAccountKey = "current_account"

type AccountGetter interface {
	GetByID(ctx context.Context, id string) (models.Account, error)
}

// Auth verifies the bearer token and loads the acting account. The account is
// always re-read so role changes take effect before the token expires.
func Auth(secret string, accounts AccountGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		account, err := accounts.GetByID(c.Request.Context(), claims.AccountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_not_found"})
			return
		}

		c.Set("access_claims", *claims)
		c.Set(currentAccountKey, account)

		c.Next()
	}
}

// CurrentAccount returns the account stored by Auth.
func CurrentAccount(c *gin.Context) (models.Account, bool) {
	val, exists := c.Get(currentAccountKey)
	if !exists {
		return models.Account{}, false
	}
	account, ok := val.(models.Account)
	return account, ok
}
