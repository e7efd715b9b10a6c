// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package model_test

import (
	"context"
	"testing"

	"github.com/chatkit-ai/chatkit-go/model"
	"github.com/chatkit-ai/chatkit-go/store"
	"github.com/chatkit-ai/chatkit-go/types"
)

func TestBackend_SendPrompt(t *testing.T) {
	m := &static{name: "default-model", text: "the answer"}
	backend := model.NewBackend(m)

	resp, err := backend.SendPrompt(t.Context(), &types.PromptRequest{
		Input:        "the question",
		SystemPrompt: "be helpful",
	})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != "the answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.Total != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	if len(m.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(m.calls))
	}
	req := m.calls[0]
	if req.System != "be helpful" {
		t.Errorf("system = %q", req.System)
	}
	if len(req.Turns) != 1 || req.Turns[0].Role != types.RoleUser || req.Turns[0].Text != "the question" {
		t.Errorf("turns = %+v", req.Turns)
	}
}

func TestBackend_StreamsThroughOnChunk(t *testing.T) {
	m := &static{name: "default-model", text: "streamed"}
	backend := model.NewBackend(m)

	var chunks []string
	resp, err := backend.SendPrompt(t.Context(), &types.PromptRequest{
		Input:   "go",
		OnChunk: func(delta string) { chunks = append(chunks, delta) },
	})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != "streamed" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(chunks) != 1 || chunks[0] != "streamed" {
		t.Errorf("chunks = %v", chunks)
	}
	if resp.Usage.Total != 15 {
		t.Errorf("streaming usage = %+v, want the final chunk's accounting", resp.Usage)
	}
}

func TestBackend_ConversationHistory(t *testing.T) {
	m := &static{name: "default-model", text: "noted"}
	svc := store.NewInMemory()
	backend := model.NewBackend(m).WithConversationService(svc)
	ctx := t.Context()

	conversation, err := svc.CreateConversation(ctx, "thread")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if _, err := backend.SendPrompt(ctx, &types.PromptRequest{
		ConversationID: conversation.ID,
		Input:          "first question",
	}); err != nil {
		t.Fatalf("first SendPrompt: %v", err)
	}
	if _, err := backend.SendPrompt(ctx, &types.PromptRequest{
		ConversationID: conversation.ID,
		Input:          "second question",
	}); err != nil {
		t.Fatalf("second SendPrompt: %v", err)
	}

	// The second call carries the first exchange as prior turns.
	second := m.calls[1]
	wantRoles := []string{types.RoleUser, types.RoleAssistant, types.RoleUser}
	if len(second.Turns) != len(wantRoles) {
		t.Fatalf("turns = %d, want %d", len(second.Turns), len(wantRoles))
	}
	for i, role := range wantRoles {
		if second.Turns[i].Role != role {
			t.Errorf("turn %d role = %s, want %s", i, second.Turns[i].Role, role)
		}
	}
	if second.Turns[1].Text != "noted" {
		t.Errorf("assistant turn = %q", second.Turns[1].Text)
	}

	// Both exchanges were persisted.
	messages, err := svc.ListMessages(ctx, conversation.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 4 {
		t.Errorf("persisted messages = %d, want 4", len(messages))
	}
}

func TestBackend_ModelOverride(t *testing.T) {
	defaultModel := &static{name: "default-model", text: "from default"}
	override := &static{name: "acme-chat", text: "from override"}

	registry := model.NewRegistry(8)
	if err := registry.Register(`acme-.*`, func(ctx context.Context, apiKey, modelName string) (model.Model, error) {
		return override, nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	backend := model.NewBackend(defaultModel).WithRegistry(registry)

	resp, err := backend.SendPrompt(t.Context(), &types.PromptRequest{
		Input: "go",
		Model: &types.ModelConfig{Model: "acme-chat"},
	})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != "from override" {
		t.Errorf("content = %q, want the override model's output", resp.Content)
	}
	if len(defaultModel.calls) != 0 {
		t.Errorf("default model called %d times, want 0", len(defaultModel.calls))
	}

	// Empty override falls back to the default model.
	resp, err = backend.SendPrompt(t.Context(), &types.PromptRequest{Input: "again"})
	if err != nil {
		t.Fatalf("SendPrompt: %v", err)
	}
	if resp.Content != "from default" {
		t.Errorf("content = %q, want the default model's output", resp.Content)
	}
}
