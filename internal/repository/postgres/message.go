package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/relaygate/internal/models"
)

// AppendMessage persists one message and bumps the parent conversation's
// updated_at in a single transaction. The insert allocates the bigserial id
// under row-level locking, so concurrent appends to one conversation
// serialize at the storage layer — no read-modify-write anywhere.
func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, sender, content string, intent *string, confidence *float64) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO messages (conversation_id, sender, content, intent, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, conversation_id, sender, content, intent, confidence, created_at`

	var msg models.Message
	err = tx.QueryRow(ctx, insert, conversationID, sender, content, intent, confidence).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Sender,
		&msg.Content,
		&msg.Intent,
		&msg.Confidence,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	touch := `UPDATE conversations SET updated_at = now() WHERE id = $1`
	if _, err := tx.Exec(ctx, touch, conversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return &msg, nil
}

// ListMessages returns a conversation's full history, oldest first. The
// bigserial id is the append order, so ordering by it is ordering by
// persistence time.
func (s *ConversationStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender, content, intent, confidence, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Sender,
			&msg.Content,
			&msg.Intent,
			&msg.Confidence,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
