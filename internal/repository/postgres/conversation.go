package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/relaygate/internal/models"
	"github.com/lalith-99/relaygate/internal/repository"
)

// ConversationStore is the Postgres-backed conversation store: end users,
// conversations and message history.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

// GetOrCreateUser upserts the (tenant, user_id) pair. ON CONFLICT makes two
// concurrent first messages from the same user converge on one row.
func (s *ConversationStore) GetOrCreateUser(ctx context.Context, tenant *models.Tenant, userID string) (*models.User, error) {
	// DO UPDATE instead of DO NOTHING so RETURNING always yields the row,
	// whether this insert won or an earlier one did.
	query := `
		INSERT INTO users (tenant_id, user_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, tenant_id, user_id, created_at`

	var u models.User
	err := s.pool.QueryRow(ctx, query, tenant.ID, userID).Scan(
		&u.ID,
		&u.TenantID,
		&u.UserID,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// newConversationID builds an external conversation id. The tenant/user
// prefix keeps ids greppable in logs; the uuid component keeps creation
// collision-free under concurrency.
func newConversationID(tenant *models.Tenant, user *models.User) string {
	return fmt.Sprintf("%s_%s_%s", tenant.TenantID, user.UserID, uuid.NewString())
}

// Resolve returns the conversation for one exchange: a fresh one when no id
// is supplied, an existing one otherwise. Two concurrent requests without an
// id deliberately get two distinct conversations — each is a legitimate new
// session. Channel retries must resend the id they were given.
func (s *ConversationStore) Resolve(ctx context.Context, tenant *models.Tenant, user *models.User, conversationID string) (*models.Conversation, error) {
	if conversationID == "" {
		query := `
			INSERT INTO conversations (conversation_id, tenant_id, user_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			RETURNING id, conversation_id, tenant_id, user_id, status, created_at, updated_at`

		var c models.Conversation
		err := s.pool.QueryRow(ctx, query,
			newConversationID(tenant, user), tenant.ID, user.ID, models.ConversationActive,
		).Scan(
			&c.ID, &c.ConversationID, &c.TenantID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert conversation: %w", err)
		}
		return &c, nil
	}

	return s.GetByConversationID(ctx, tenant, conversationID)
}

// GetByConversationID fetches a conversation scoped to the tenant. The query
// filters on tenant_id, so "someone else's conversation" and "no such
// conversation" are the same empty result — ErrInvalidConversation either way.
func (s *ConversationStore) GetByConversationID(ctx context.Context, tenant *models.Tenant, conversationID string) (*models.Conversation, error) {
	query := `
		SELECT id, conversation_id, tenant_id, user_id, status, created_at, updated_at
		FROM conversations
		WHERE conversation_id = $1 AND tenant_id = $2`

	var c models.Conversation
	err := s.pool.QueryRow(ctx, query, conversationID, tenant.ID).Scan(
		&c.ID, &c.ConversationID, &c.TenantID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrInvalidConversation
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// ListByTenant returns the tenant's conversations joined with their owning
// user, most recently updated first.
func (s *ConversationStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]repository.ConversationSummary, error) {
	query := `
		SELECT c.conversation_id, u.user_id, c.status, c.created_at, c.updated_at
		FROM conversations c
		JOIN users u ON u.id = c.user_id
		WHERE c.tenant_id = $1
		ORDER BY c.updated_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]repository.ConversationSummary, 0)
	for rows.Next() {
		var cs repository.ConversationSummary
		if err := rows.Scan(&cs.ConversationID, &cs.UserID, &cs.Status, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return summaries, nil
}
