package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level isolation boundary. Every user, conversation and
// message belongs to exactly one tenant; company A never sees company B's data.
//
// TenantID is the external identifier ("store1") used in headers, tokens and
// the registry file. ID is the internal surrogate key that foreign keys point
// at. APIKeyHash is a bcrypt hash — the plaintext key is never stored.
type Tenant struct {
	ID         uuid.UUID    `json:"-"`
	TenantID   string       `json:"tenant_id"`
	Name       string       `json:"name"`
	APIKeyHash string       `json:"-"`
	Config     TenantConfig `json:"config"`
	CreatedAt  time.Time    `json:"created_at"`
}

// User is an end user of a tenant's channel (a chat visitor, not an operator
// account). Users are created lazily on their first message.
//
// UserID is whatever identifier the channel supplies ("u1", a phone number, a
// chat handle). It is only unique within a tenant — (TenantID, UserID) is the
// real identity.
type User struct {
	ID        uuid.UUID `json:"-"`
	TenantID  uuid.UUID `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation status values.
const (
	ConversationActive = "active"
	ConversationClosed = "closed"
)

// Conversation is one continuous exchange between a user and the bot.
// It belongs to exactly one tenant and one user and is never re-parented.
// UpdatedAt advances on every appended message.
type Conversation struct {
	ID             uuid.UUID `json:"-"`
	ConversationID string    `json:"conversation_id"`
	TenantID       uuid.UUID `json:"-"`
	UserID         uuid.UUID `json:"-"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message sender values.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is a single entry in a conversation's history. Immutable once
// written; append order defines the history. Intent and Confidence are only
// present on bot messages, and only when the NLU backend supplied them.
//
// ID is a bigserial: messages are the highest-volume table and always pass
// through this API, so a single Postgres sequence is enough and gives a
// total order for free.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"-"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Intent         *string   `json:"intent"`
	Confidence     *float64  `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}
