package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"diary-companion/internal/service"
)

const (
	authClaimsKey = "auth_claims"
	authTokenKey  = "auth_token"
)

// SessionAuthMiddleware valida el token de sesion Bearer y guarda claims y
// token en el contexto.
func SessionAuthMiddleware(tokens *service.SessionTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Set(authTokenKey, token)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}

// GetAuthClaims obtiene los claims de sesion desde el contexto.
func GetAuthClaims(c *gin.Context) (service.SessionClaims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.SessionClaims{}, false
	}
	claims, ok := val.(service.SessionClaims)
	return claims, ok
}

// GetSessionToken obtiene el token ya validado desde el contexto.
func GetSessionToken(c *gin.Context) string {
	return c.GetString(authTokenKey)
}
