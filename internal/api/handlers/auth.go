package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/forecast-ai-go/internal/middleware"
)

// AuthHandler exchanges an authenticated API key for a JWT.
type AuthHandler struct {
	auth   *middleware.AuthMiddleware
	expiry time.Duration
}

// TokenResponse is the body of a successful token exchange.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAuthHandler creates an auth handler issuing tokens valid for expiry.
func NewAuthHandler(auth *middleware.AuthMiddleware, expiry time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, expiry: expiry}
}

// IssueToken must run behind the API key middleware.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	clientID := c.GetString(middleware.ClientIDKey)
	if clientID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	token, expires, err := h.auth.GenerateToken(clientID, h.expiry)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires})
}
