// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/chatkit-ai/chatkit-go/types"
)

// SQLite is a [types.ConversationService] persisted to a SQLite database.
type SQLite struct {
	db   *sql.DB
	subs *subscribers
}

var _ types.ConversationService = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at dbPath and migrates
// the schema.
//
// foreign_keys is a per-connection SQLite setting, so it is passed through
// the DSN where the driver applies it to every pooled connection; a plain
// Exec would only configure whichever connection happened to run it.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	s := &SQLite{db: db, subs: newSubscribers()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close implements [types.ConversationService].
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// CreateConversation implements [types.ConversationService].
func (s *SQLite) CreateConversation(ctx context.Context, title string) (*types.Conversation, error) {
	now := time.Now()
	conversation := &types.Conversation{
		ID:        types.NewConversationID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]any),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at, metadata) VALUES (?, ?, ?, ?, ?)`,
		conversation.ID, conversation.Title, conversation.CreatedAt, conversation.UpdatedAt, "{}",
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	s.subs.notify(types.ChangeEvent{Kind: types.ConversationCreated, ConversationID: conversation.ID})
	return conversation, nil
}

// GetConversation implements [types.ConversationService].
func (s *SQLite) GetConversation(ctx context.Context, id string) (*types.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at, metadata FROM conversations WHERE id = ?`, id)
	return scanConversation(row)
}

// ListConversations implements [types.ConversationService].
func (s *SQLite) ListConversations(ctx context.Context) ([]*types.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at, metadata FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*types.Conversation
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, rows.Err()
}

// UpdateConversation implements [types.ConversationService].
func (s *SQLite) UpdateConversation(ctx context.Context, conversation *types.Conversation) error {
	metadata, err := sonic.ConfigFastest.Marshal(conversation.Metadata)
	if err != nil {
		return fmt.Errorf("marshal conversation metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		conversation.Title, string(metadata), time.Now(), conversation.ID,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s not found", conversation.ID)
	}

	s.subs.notify(types.ChangeEvent{Kind: types.ConversationUpdated, ConversationID: conversation.ID})
	return nil
}

// DeleteConversation implements [types.ConversationService].
func (s *SQLite) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	s.subs.notify(types.ChangeEvent{Kind: types.ConversationDeleted, ConversationID: id})
	return nil
}

// AppendMessage implements [types.ConversationService].
func (s *SQLite) AppendMessage(ctx context.Context, message *types.Message) (*types.Message, error) {
	stored := *message
	if stored.ID == "" {
		stored.ID = types.NewMessageID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append message: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		stored.CreatedAt, stored.ConversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("conversation %s not found", stored.ConversationID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at, prompt_tokens, completion_tokens, total_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.ConversationID, stored.Role, stored.Content, stored.CreatedAt,
		stored.Usage.Prompt, stored.Usage.Completion, stored.Usage.Total,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append message: %w", err)
	}

	s.subs.notify(types.ChangeEvent{
		Kind:           types.MessageAppended,
		ConversationID: stored.ConversationID,
		MessageID:      stored.ID,
	})
	return &stored, nil
}

// ListMessages implements [types.ConversationService].
func (s *SQLite) ListMessages(ctx context.Context, conversationID string) ([]*types.Message, error) {
	var one int
	if err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %s not found", conversationID)
		}
		return nil, fmt.Errorf("check conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at, prompt_tokens, completion_tokens, total_tokens
		 FROM messages WHERE conversation_id = ? ORDER BY created_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*types.Message
	for rows.Next() {
		message := new(types.Message)
		if err := rows.Scan(
			&message.ID, &message.ConversationID, &message.Role, &message.Content, &message.CreatedAt,
			&message.Usage.Prompt, &message.Usage.Completion, &message.Usage.Total,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// Subscribe implements [types.ConversationService].
func (s *SQLite) Subscribe(fn func(types.ChangeEvent)) (unsubscribe func()) {
	return s.subs.add(fn)
}

// scanner abstracts sql.Row and sql.Rows for conversation scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*types.Conversation, error) {
	conversation := new(types.Conversation)
	var metadata string
	if err := row.Scan(&conversation.ID, &conversation.Title, &conversation.CreatedAt, &conversation.UpdatedAt, &metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if err := sonic.ConfigFastest.Unmarshal([]byte(metadata), &conversation.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal conversation metadata: %w", err)
	}
	return conversation, nil
}
