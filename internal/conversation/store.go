// Package conversation persists chat sessions and their messages, and holds
// the per-session state the pipeline needs between turns.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates a missing conversation.
var ErrNotFound = errors.New("conversation not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Conversation is one chat session.
type Conversation struct {
	ID          string    `json:"conversation_id"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastMessage string    `json:"last_message"`
}

// Message is one stored chat message. ProductIDs records the verified
// products surfaced alongside an assistant reply.
type Message struct {
	ID             string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ProductIDs     []int64   `json:"product_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists conversations and messages.
type Store struct {
	db DB
}

// NewStore creates a conversation store over the given database.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Migrate creates the conversation tables if they do not exist. The schema
// is kept to types both SQLite and Postgres accept.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			last_message TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id VARCHAR(36) PRIMARY KEY,
			conversation_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			role VARCHAR(16) NOT NULL,
			content TEXT NOT NULL,
			products TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate conversations: %w", err)
		}
	}
	return nil
}

// LogMessage appends a message to a conversation, creating the conversation
// record on first use and updating its last message otherwise.
func (s *Store) LogMessage(ctx context.Context, msg *Message) error {
	if msg.ConversationID == "" {
		msg.ConversationID = msg.UserID
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	msg.CreatedAt = now

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id FROM conversations WHERE conversation_id = $1`,
		msg.ConversationID,
	).Scan(&existing)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO conversations (conversation_id, user_id, created_at, updated_at, last_message)
			 VALUES ($1, $2, $3, $4, $5)`,
			msg.ConversationID, msg.UserID, now, now, msg.Content,
		)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
	case err != nil:
		return fmt.Errorf("check conversation: %w", err)
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE conversations SET last_message = $1, updated_at = $2 WHERE conversation_id = $3`,
			msg.Content, now, msg.ConversationID,
		)
		if err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
	}

	var productsJSON sql.NullString
	if len(msg.ProductIDs) > 0 {
		data, err := json.Marshal(msg.ProductIDs)
		if err != nil {
			return fmt.Errorf("marshal product ids: %w", err)
		}
		productsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, user_id, role, content, products, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.ConversationID, msg.UserID, msg.Role, msg.Content, productsJSON, now,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// ListConversations returns all conversations, most recently active first.
func (s *Store) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, created_at, updated_at, last_message
		 FROM conversations ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		var lastMessage sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt, &lastMessage); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.LastMessage = lastMessage.String
		conversations = append(conversations, c)
	}

	return conversations, rows.Err()
}

// GetMessages returns a conversation's messages in chronological order.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, user_id, role, content, products, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, role ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var productsJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &productsJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if productsJSON.Valid && productsJSON.String != "" {
			// Unparseable product lists are dropped, not fatal.
			_ = json.Unmarshal([]byte(productsJSON.String), &m.ProductIDs)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// DeleteConversation removes a conversation and all its messages in one
// transaction, so a failure cannot leave orphaned messages behind.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = $1`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = $1`,
		conversationID,
	); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}
