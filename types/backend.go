// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "context"

// ChatBackend is the collaborator that carries one prompt to an LLM
// provider and streams the answer back. The workflow layer depends only on
// this contract; the model package provides the provider implementations.
type ChatBackend interface {
	// SendPrompt streams the model's answer through req.OnChunk (when set)
	// and returns the final text plus token usage. Provider and network
	// errors are returned as-is; the caller decides whether to retry.
	SendPrompt(ctx context.Context, req *PromptRequest) (*PromptResponse, error)
}

// PromptRequest is one chat invocation.
type PromptRequest struct {
	// ConversationID scopes the call to a conversation. Backends that keep
	// history use it to load and append messages.
	ConversationID string

	// Input is the user-side prompt text.
	Input string

	// SystemPrompt is the system instruction for this call.
	SystemPrompt string

	// Model optionally overrides the backend's default model.
	Model *ModelConfig

	// MaxSteps bounds internal reasoning/tool steps for backends that have
	// them; backends without tool loops ignore it.
	MaxSteps int

	// OnChunk, when set, receives each streamed text delta in order.
	OnChunk func(delta string)
}

// PromptResponse is the settled result of one chat invocation.
type PromptResponse struct {
	// Content is the full response text.
	Content string

	// Usage is the provider-reported token accounting.
	Usage TokenUsage
}
