package middleware

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type identityClaims struct {
	jwt.RegisteredClaims
}

// OptionalAuth extracts an owner identity from a bearer token when one
// is present. Anonymous requests pass through untouched; interviews do
// not require an account. Tokens are issued by an external identity
// provider and verified with a shared HS256 secret.
func OptionalAuth() gin.HandlerFunc {
	secret := os.Getenv("AUTH_JWT_SECRET")
	issuer := os.Getenv("AUTH_JWT_ISSUER") // optional

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || secret == "" {
			c.Next()
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if raw == "" {
			c.Next()
			return
		}

		claims := &identityClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		// A bad token degrades to anonymous rather than rejecting the
		// request; history is simply not attributed.
		if err != nil || tok == nil || !tok.Valid || claims.Subject == "" {
			c.Next()
			return
		}
		if issuer != "" && claims.Issuer != issuer {
			c.Next()
			return
		}

		c.Set("owner_id", claims.Subject)
		c.Next()
	}
}

// OwnerID returns the authenticated owner id, or "" for anonymous
// requests.
func OwnerID(c *gin.Context) string {
	if v, ok := c.Get("owner_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequireOwner aborts anonymous requests. Profile and resume routes
// need an identity to key rows on.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if OwnerID(c) == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}
