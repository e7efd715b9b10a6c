// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

// Package model implements chat backends over LLM provider APIs: Anthropic
// Claude, Google Gemini and OpenAI-compatible endpoints, plus a pattern
// registry that resolves a model name to its provider implementation.
package model

import (
	"context"
	"iter"

	"github.com/chatkit-ai/chatkit-go/types"
)

// Turn is one prior exchange in a chat request.
type Turn struct {
	// Role is [types.RoleUser] or [types.RoleAssistant].
	Role string

	// Text is the turn's content.
	Text string
}

// Request is a provider-agnostic chat request.
type Request struct {
	// System is the system instruction, empty when none.
	System string

	// Turns is the conversation so far, oldest first, ending with the
	// current user input.
	Turns []Turn

	// Temperature is the sampling temperature. Nil means provider default.
	Temperature *float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Response is the settled result of a chat request.
type Response struct {
	Text  string
	Usage types.TokenUsage
}

// Chunk is one streamed fragment of a chat response. Text carries a delta;
// Usage, when non-nil, carries the final token accounting (providers report
// it on the last event of a stream).
type Chunk struct {
	Text  string
	Usage *types.TokenUsage
}

// Model is one provider's chat implementation.
type Model interface {
	// Name returns the model identifier, e.g. "claude-3-5-haiku-latest".
	Name() string

	// SupportedModels returns the model names this implementation serves,
	// for the registry.
	SupportedModels() []string

	// Generate performs a unary chat call.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// StreamGenerate performs a streaming chat call. The sequence ends with
	// a final chunk carrying usage, or an error.
	StreamGenerate(ctx context.Context, req *Request) iter.Seq2[*Chunk, error]
}
