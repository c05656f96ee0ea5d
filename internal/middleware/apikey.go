package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyClientID identifies clients authenticated by the shared API key.
const APIKeyClientID = "api-key"

// APIKeyMiddleware checks the shared API key against its bcrypt hash.
type APIKeyMiddleware struct {
	hash []byte
}

func NewAPIKeyMiddleware(hash string) *APIKeyMiddleware {
	return &APIKeyMiddleware{hash: []byte(hash)}
}

// Verify reports whether key matches the configured hash. It is always false
// when no hash is configured.
func (am *APIKeyMiddleware) Verify(key string) bool {
	if len(am.hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(am.hash, []byte(key)) == nil
}

// RequireAPIKey accepts the key from X-API-Key or a Bearer header.
func (am *APIKeyMiddleware) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key, _ = bearerToken(c.GetHeader("Authorization"))
		}

		if !am.Verify(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Set(ClientIDKey, APIKeyClientID)
		c.Next()
	}
}
