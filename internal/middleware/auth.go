package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Jacoblal12/booknest-backend/internal/services"
)

const principalKey = "principal"

// Claims is the token payload issued by the external identity provider.
type Claims struct {
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// Authenticate parses the bearer token and attaches the principal to the gin
// context. Token issuance and refresh live in the identity provider; this
// backend only verifies.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid subject"})
			return
		}

		c.Set(principalKey, services.Principal{
			ID:       userID,
			Username: claims.Username,
			IsStaff:  claims.IsStaff,
		})
		c.Next()
	}
}

// CurrentPrincipal returns the principal set by Authenticate. Handlers behind
// the middleware can rely on it being present.
func CurrentPrincipal(c *gin.Context) services.Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(services.Principal)
	return principal
}
