package db

import (
	"context"
	"fmt"
)

// schema is the relay's full table set. Bootstrap at startup keeps a fresh
// database usable without a separate migration step; anything beyond
// CREATE IF NOT EXISTS belongs in a real migration tool.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		tenant_id VARCHAR(50) UNIQUE NOT NULL,
		name VARCHAR(100) NOT NULL,
		api_key_hash VARCHAR(100) NOT NULL,
		config JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		user_id VARCHAR(100) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		conversation_id VARCHAR(200) UNIQUE NOT NULL,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		user_id UUID NOT NULL REFERENCES users(id),
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		sender VARCHAR(10) NOT NULL,
		content TEXT NOT NULL,
		intent VARCHAR(100),
		confidence DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_tenant_updated
		ON conversations (tenant_id, updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages (conversation_id, id)`,
}

// EnsureSchema creates all tables and indexes inside one transaction, so a
// half-created schema never survives a failed boot.
func (db *DB) EnsureSchema(ctx context.Context) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema bootstrap: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ddl := range schema {
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema bootstrap: %w", err)
	}
	db.logger.Info("database schema ensured")
	return nil
}
