// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow_test

import (
	"context"
	"sync"

	"github.com/chatkit-ai/chatkit-go/types"
)

// fakeBackend is a deterministic [types.ChatBackend] for tests. handler
// receives the zero-based call number and the request.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []*types.PromptRequest
	handler func(call int, req *types.PromptRequest) (*types.PromptResponse, error)
}

func (f *fakeBackend) SendPrompt(ctx context.Context, req *types.PromptRequest) (*types.PromptResponse, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	handler := f.handler
	f.mu.Unlock()

	return handler(n, req)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) call(i int) *types.PromptRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// textResponse builds a response with a fixed token usage so tests can
// assert accounting.
func textResponse(text string) *types.PromptResponse {
	return &types.PromptResponse{
		Content: text,
		Usage:   types.TokenUsage{Prompt: 10, Completion: 5, Total: 15},
	}
}

// bySystemPrompt answers each call according to the requesting agent's
// system prompt, regardless of call order.
func bySystemPrompt(responses map[string]string) func(int, *types.PromptRequest) (*types.PromptResponse, error) {
	return func(_ int, req *types.PromptRequest) (*types.PromptResponse, error) {
		return textResponse(responses[req.SystemPrompt]), nil
	}
}

func agentSpec(id, name, system string) *types.AgentSpec {
	return &types.AgentSpec{ID: id, Name: name, SystemPrompt: system}
}
