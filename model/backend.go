// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chatkit-ai/chatkit-go/pkg/logging"
	"github.com/chatkit-ai/chatkit-go/types"
)

// Backend adapts the model layer to [types.ChatBackend].
//
// It serves every call with its default model unless the request carries a
// [types.ModelConfig] override, in which case the override's model name is
// resolved through the registry (API keys come from the provider's
// environment variable). Resolved overrides are cached per model name.
//
// When a [types.ConversationService] is attached, the backend loads the
// conversation's messages as prior turns and appends the new exchange after
// a successful call.
type Backend struct {
	defaultModel Model
	registry     *Registry
	store        types.ConversationService

	mu        sync.Mutex
	overrides map[string]Model
}

var _ types.ChatBackend = (*Backend)(nil)

// NewBackend creates a [Backend] serving calls with the given default model.
func NewBackend(defaultModel Model) *Backend {
	return &Backend{
		defaultModel: defaultModel,
		registry:     GetRegistry(),
		overrides:    make(map[string]Model),
	}
}

// WithRegistry replaces the registry used to resolve model overrides.
func (b *Backend) WithRegistry(registry *Registry) *Backend {
	b.registry = registry
	return b
}

// WithConversationService attaches a store for conversation history.
func (b *Backend) WithConversationService(store types.ConversationService) *Backend {
	b.store = store
	return b
}

// resolve returns the model serving the request, consulting the registry
// for overrides.
func (b *Backend) resolve(ctx context.Context, config *types.ModelConfig) (Model, error) {
	if config == nil || config.Model == "" || config.Model == b.defaultModel.Name() {
		return b.defaultModel, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.overrides[config.Model]; ok {
		return m, nil
	}

	m, err := b.registry.NewModel(ctx, "", config.Model)
	if err != nil {
		return nil, fmt.Errorf("resolve model override %q: %w", config.Model, err)
	}
	b.overrides[config.Model] = m
	return m, nil
}

// SendPrompt implements [types.ChatBackend].
func (b *Backend) SendPrompt(ctx context.Context, req *types.PromptRequest) (*types.PromptResponse, error) {
	logger := logging.FromContext(ctx)

	m, err := b.resolve(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	mreq := &Request{
		System: req.SystemPrompt,
	}
	if req.Model != nil {
		mreq.Temperature = req.Model.Temperature
		mreq.MaxTokens = req.Model.MaxTokens
	}

	if b.store != nil && req.ConversationID != "" {
		history, err := b.store.ListMessages(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("load conversation history: %w", err)
		}
		for _, msg := range history {
			if msg.Role == types.RoleSystem {
				continue
			}
			mreq.Turns = append(mreq.Turns, Turn{Role: msg.Role, Text: msg.Content})
		}
	}
	mreq.Turns = append(mreq.Turns, Turn{Role: types.RoleUser, Text: req.Input})

	logger.DebugContext(ctx, "sending prompt",
		slog.String("model", m.Name()),
		slog.String("conversation_id", req.ConversationID),
		slog.Int("turns", len(mreq.Turns)),
	)

	var (
		sb    strings.Builder
		usage types.TokenUsage
	)
	if req.OnChunk == nil {
		resp, err := m.Generate(ctx, mreq)
		if err != nil {
			return nil, err
		}
		sb.WriteString(resp.Text)
		usage = resp.Usage
	} else {
		for chunk, err := range m.StreamGenerate(ctx, mreq) {
			if err != nil {
				return nil, err
			}
			if chunk.Text != "" {
				sb.WriteString(chunk.Text)
				req.OnChunk(chunk.Text)
			}
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
		}
	}

	content := sb.String()
	if b.store != nil && req.ConversationID != "" {
		now := time.Now()
		userMsg := &types.Message{
			ConversationID: req.ConversationID,
			Role:           types.RoleUser,
			Content:        req.Input,
			CreatedAt:      now,
		}
		assistantMsg := &types.Message{
			ConversationID: req.ConversationID,
			Role:           types.RoleAssistant,
			Content:        content,
			Usage:          usage,
		}
		if _, err := b.store.AppendMessage(ctx, userMsg); err != nil {
			logger.WarnContext(ctx, "persist user message", slog.String("error", err.Error()))
		}
		if _, err := b.store.AppendMessage(ctx, assistantMsg); err != nil {
			logger.WarnContext(ctx, "persist assistant message", slog.String("error", err.Error()))
		}
	}

	return &types.PromptResponse{
		Content: content,
		Usage:   usage,
	}, nil
}
