package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/relaygate/internal/middleware"
	"github.com/lalith-99/relaygate/internal/models"
	"github.com/lalith-99/relaygate/internal/relay"
	"github.com/lalith-99/relaygate/internal/repository"
	"go.uber.org/zap"
)

// RelayService is what the handlers need from the orchestrator.
type RelayService interface {
	HandleMessage(ctx context.Context, tenantID string, in relay.InboundMessage) (*relay.Reply, error)
	ListConversations(ctx context.Context, tenantID string) ([]repository.ConversationSummary, error)
	History(ctx context.Context, tenantID, conversationID string) ([]models.Message, error)
}

// RelayHandler serves the webhook and the tenant-scoped read endpoints.
type RelayHandler struct {
	svc    RelayService
	logger *zap.Logger
}

func NewRelayHandler(svc RelayService, logger *zap.Logger) *RelayHandler {
	return &RelayHandler{svc: svc, logger: logger}
}

// webhookRequest is one inbound message from a channel connector.
// conversation_id is optional: absent starts a new conversation, present
// resumes one. Connectors retrying a delivery must resend the id they got.
type webhookRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// Webhook handles POST /webhook
func (h *RelayHandler) Webhook(c *gin.Context) {
	// Shape validation happens before anything touches storage.
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	reply, err := h.svc.HandleMessage(c.Request.Context(), tenantID, relay.InboundMessage{
		UserID:         req.UserID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidConversation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		case errors.Is(err, relay.ErrUnknownTenant):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant"})
		case errors.Is(err, relay.ErrUpstream):
			h.logger.Error("upstream failure", zap.String("tenant_id", tenantID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get response from NLU backend"})
		default:
			h.logger.Error("webhook exchange failed", zap.String("tenant_id", tenantID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, reply)
}

// Conversations handles GET /conversations
func (h *RelayHandler) Conversations(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	conversations, err := h.svc.ListConversations(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, relay.ErrUnknownTenant) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant"})
			return
		}
		h.logger.Error("failed to list conversations", zap.String("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Messages handles GET /conversations/:id/messages
//
// A conversation that doesn't exist and a conversation owned by another
// tenant get the same 404.
func (h *RelayHandler) Messages(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	conversationID := c.Param("id")

	messages, err := h.svc.History(c.Request.Context(), tenantID, conversationID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidConversation):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		case errors.Is(err, relay.ErrUnknownTenant):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant"})
		default:
			h.logger.Error("failed to list messages", zap.String("tenant_id", tenantID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
