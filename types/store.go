// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "context"

// ChangeKind tags a store change notification.
type ChangeKind string

const (
	ConversationCreated ChangeKind = "conversation-created"
	ConversationUpdated ChangeKind = "conversation-updated"
	ConversationDeleted ChangeKind = "conversation-deleted"
	MessageAppended     ChangeKind = "message-appended"
)

// ChangeEvent describes one committed store mutation.
type ChangeEvent struct {
	Kind           ChangeKind
	ConversationID string
	MessageID      string
}

// ConversationService stores conversations and their messages.
//
// Store instances are passed explicitly through constructors; there is no
// package-level default. Subscribers are notified after a mutation commits
// and deregister through the returned handle.
type ConversationService interface {
	// CreateConversation creates a conversation with the given title.
	CreateConversation(ctx context.Context, title string) (*Conversation, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// ListConversations lists all conversations, most recently updated first.
	ListConversations(ctx context.Context) ([]*Conversation, error)

	// UpdateConversation replaces the title and metadata of an existing
	// conversation.
	UpdateConversation(ctx context.Context, conversation *Conversation) error

	// DeleteConversation deletes a conversation and its messages.
	DeleteConversation(ctx context.Context, id string) error

	// AppendMessage appends a message to its conversation, assigning ID and
	// CreatedAt when unset, and bumps the conversation's UpdatedAt.
	AppendMessage(ctx context.Context, message *Message) (*Message, error)

	// ListMessages lists a conversation's messages in append order. An
	// unknown conversation ID is an error, not an empty list.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// Subscribe registers fn for change notifications and returns its
	// deregistration handle. fn must not call back into the service.
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())

	// Close releases the underlying storage.
	Close() error
}
