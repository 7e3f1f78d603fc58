package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/relaygate/internal/auth"
	"github.com/lalith-99/relaygate/internal/repository"
	"go.uber.org/zap"
)

// ContextKeyTenantID is where the middlewares leave the verified tenant
// identity for handlers. Handlers read it through GetTenantID, never by
// re-parsing credentials.
const ContextKeyTenantID = "tenant_id"

// Request headers for the API-key capability.
const (
	HeaderAPIKey   = "X-API-Key"
	HeaderTenantID = "X-Tenant-ID"
)

// Every authentication failure gets the same body. Which check failed —
// missing header, unknown tenant, wrong key, expired token — is not the
// caller's to know.
var unauthorizedBody = gin.H{"error": "unauthorized"}

// TokenVerifier is the slice of the token service the bearer middleware
// needs.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireToken guards routes that need a session token. It validates the
// bearer token and passes the verified tenant id on via the context; the
// handler never sees the token itself.
func RequireToken(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		claims, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Next()
	}
}

// RequireAPIKey guards the token-issuing endpoint with the long-lived
// credential: X-Tenant-ID names the tenant, X-API-Key must match its stored
// hash. A store failure is an infrastructure error, not an authentication
// verdict.
func RequireAPIKey(tenants repository.TenantRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		tenantID := c.GetHeader(HeaderTenantID)
		if apiKey == "" || tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		ok, err := tenants.VerifyAPIKey(c.Request.Context(), tenantID, apiKey)
		if err != nil {
			logger.Error("api key verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "credential store unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		c.Set(ContextKeyTenantID, tenantID)
		c.Next()
	}
}

// GetTenantID returns the tenant identity a Require* middleware verified, or
// "" when none ran (which any tenant-scoped query then fails closed on).
func GetTenantID(c *gin.Context) string {
	val, exists := c.Get(ContextKeyTenantID)
	if !exists {
		return ""
	}
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
