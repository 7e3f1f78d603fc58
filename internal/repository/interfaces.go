package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/relaygate/internal/models"
)

// ErrInvalidConversation covers both "no such conversation" and "conversation
// belongs to another tenant". Callers must not be able to tell the two apart,
// otherwise a tenant could probe which conversation ids exist elsewhere.
var ErrInvalidConversation = errors.New("invalid conversation")

// Every method takes a context: these are all network calls into Postgres,
// and a cancelled request should cancel its queries. Every query is scoped by
// tenant — the store never trusts a caller-supplied id on its own.

// TenantRepository is the credential store: the durable tenant registry and
// the API-key verification path.
type TenantRepository interface {
	// Upsert inserts or refreshes a tenant record, keyed by the external
	// tenant id. Idempotent; used by the startup registry load.
	Upsert(ctx context.Context, tenantID, name, apiKeyHash string, config models.TenantConfig) (*models.Tenant, error)

	// GetByTenantID returns nil, nil when the tenant does not exist.
	GetByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error)

	// VerifyAPIKey reports whether candidate matches the tenant's stored
	// key hash. Unknown tenant and wrong key both return false with no
	// error; an error means the store itself failed.
	VerifyAPIKey(ctx context.Context, tenantID, candidate string) (bool, error)
}

// ConversationSummary is the tenant-facing listing row: external ids only,
// with the owning user resolved.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConversationRepository owns users, conversations and their message history.
type ConversationRepository interface {
	// GetOrCreateUser upserts the (tenant, user_id) pair. Safe under
	// concurrent first messages from the same user.
	GetOrCreateUser(ctx context.Context, tenant *models.Tenant, userID string) (*models.User, error)

	// Resolve returns the conversation for this exchange. An empty
	// conversationID creates a fresh active conversation with a
	// collision-free id. A non-empty one is fetched and must belong to
	// the tenant; otherwise ErrInvalidConversation.
	Resolve(ctx context.Context, tenant *models.Tenant, user *models.User, conversationID string) (*models.Conversation, error)

	// GetByConversationID is the tenant-scoped read used by the history
	// endpoint. ErrInvalidConversation on miss or cross-tenant access.
	GetByConversationID(ctx context.Context, tenant *models.Tenant, conversationID string) (*models.Conversation, error)

	// AppendMessage persists one message and advances the parent
	// conversation's updated_at in the same transaction.
	AppendMessage(ctx context.Context, conversationID uuid.UUID, sender, content string, intent *string, confidence *float64) (*models.Message, error)

	// ListByTenant returns the tenant's conversations, most recently
	// updated first. Empty slice, never nil.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]ConversationSummary, error)

	// ListMessages returns a conversation's history, oldest first.
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
}
