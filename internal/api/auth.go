package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/relaygate/internal/middleware"
	"go.uber.org/zap"
)

// TokenIssuer is the slice of the token service the auth endpoint needs.
type TokenIssuer interface {
	Issue(tenantID string) (string, error)
}

// AuthHandler exchanges a long-lived API key for a short-lived session
// token. The API-key check itself happens in middleware.RequireAPIKey; by
// the time this handler runs the tenant identity is already verified.
type AuthHandler struct {
	tokens TokenIssuer
	logger *zap.Logger
}

func NewAuthHandler(tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: logger}
}

// Token handles POST /auth
func (h *AuthHandler) Token(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	token, err := h.tokens.Issue(tenantID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.String("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
