// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation is one chat thread.
type Conversation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Message is one turn in a conversation.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	Usage          TokenUsage `json:"usage"`
}

// NewConversationID returns a unique identifier for a [Conversation].
func NewConversationID() string {
	return "conv-" + uuid.New().String()
}

// NewMessageID returns a unique identifier for a [Message].
func NewMessageID() string {
	return "msg-" + uuid.New().String()
}
