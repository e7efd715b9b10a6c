// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/chatkit-ai/chatkit-go/pkg/logging"
	"github.com/chatkit-ai/chatkit-go/types"
)

// InMemory is an in-memory implementation of [types.ConversationService].
type InMemory struct {
	mu            sync.RWMutex
	conversations map[string]*types.Conversation
	messages      map[string][]*types.Message

	subs *subscribers
}

var _ types.ConversationService = (*InMemory)(nil)

// NewInMemory creates a new [InMemory] store.
func NewInMemory() *InMemory {
	return &InMemory{
		conversations: make(map[string]*types.Conversation),
		messages:      make(map[string][]*types.Message),
		subs:          newSubscribers(),
	}
}

// CreateConversation implements [types.ConversationService].
func (s *InMemory) CreateConversation(ctx context.Context, title string) (*types.Conversation, error) {
	now := time.Now()
	conversation := &types.Conversation{
		ID:        types.NewConversationID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]any),
	}

	s.mu.Lock()
	s.conversations[conversation.ID] = conversation
	s.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "created conversation",
		slog.String("conversation_id", conversation.ID),
	)
	s.subs.notify(types.ChangeEvent{Kind: types.ConversationCreated, ConversationID: conversation.ID})

	return copyConversation(conversation), nil
}

// GetConversation implements [types.ConversationService].
func (s *InMemory) GetConversation(ctx context.Context, id string) (*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	return copyConversation(conversation), nil
}

// ListConversations implements [types.ConversationService].
func (s *InMemory) ListConversations(ctx context.Context) ([]*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := make([]*types.Conversation, 0, len(s.conversations))
	for _, conversation := range s.conversations {
		conversations = append(conversations, copyConversation(conversation))
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

// UpdateConversation implements [types.ConversationService].
func (s *InMemory) UpdateConversation(ctx context.Context, conversation *types.Conversation) error {
	s.mu.Lock()
	stored, ok := s.conversations[conversation.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("conversation %s not found", conversation.ID)
	}
	stored.Title = conversation.Title
	stored.Metadata = maps.Clone(conversation.Metadata)
	stored.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.subs.notify(types.ChangeEvent{Kind: types.ConversationUpdated, ConversationID: conversation.ID})
	return nil
}

// DeleteConversation implements [types.ConversationService].
func (s *InMemory) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.conversations[id]
	delete(s.conversations, id)
	delete(s.messages, id)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	s.subs.notify(types.ChangeEvent{Kind: types.ConversationDeleted, ConversationID: id})
	return nil
}

// AppendMessage implements [types.ConversationService].
func (s *InMemory) AppendMessage(ctx context.Context, message *types.Message) (*types.Message, error) {
	s.mu.Lock()
	conversation, ok := s.conversations[message.ConversationID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("conversation %s not found", message.ConversationID)
	}

	stored := *message
	if stored.ID == "" {
		stored.ID = types.NewMessageID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], &stored)
	conversation.UpdatedAt = stored.CreatedAt
	s.mu.Unlock()

	s.subs.notify(types.ChangeEvent{
		Kind:           types.MessageAppended,
		ConversationID: stored.ConversationID,
		MessageID:      stored.ID,
	})

	out := stored
	return &out, nil
}

// ListMessages implements [types.ConversationService].
func (s *InMemory) ListMessages(ctx context.Context, conversationID string) ([]*types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, fmt.Errorf("conversation %s not found", conversationID)
	}

	messages := make([]*types.Message, 0, len(s.messages[conversationID]))
	for _, message := range s.messages[conversationID] {
		copied := *message
		messages = append(messages, &copied)
	}
	return messages, nil
}

// Subscribe implements [types.ConversationService].
func (s *InMemory) Subscribe(fn func(types.ChangeEvent)) (unsubscribe func()) {
	return s.subs.add(fn)
}

// Close implements [types.ConversationService].
func (s *InMemory) Close() error {
	return nil
}

// copyConversation returns a shallow copy with its own metadata map.
func copyConversation(c *types.Conversation) *types.Conversation {
	copied := *c
	copied.Metadata = maps.Clone(c.Metadata)
	return &copied
}
