// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chatkit-ai/chatkit-go/types"
	"github.com/chatkit-ai/chatkit-go/workflow"
)

func TestExecutor_RunAgent_CollectsStreamAndUsage(t *testing.T) {
	backend := &fakeBackend{
		handler: func(_ int, req *types.PromptRequest) (*types.PromptResponse, error) {
			req.OnChunk("hel")
			req.OnChunk("lo")
			return textResponse("hello"), nil
		},
	}
	exec := workflow.NewExecutor(backend)

	var events []types.ProgressEvent
	step, err := exec.RunAgent(t.Context(), agentSpec("a1", "writer", "sys"), "input", "conv-1", func(e types.ProgressEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}

	if step.Output != "hello" {
		t.Errorf("output = %q, want %q", step.Output, "hello")
	}
	if step.Usage.Total != 15 {
		t.Errorf("usage total = %d, want 15", step.Usage.Total)
	}
	if step.AgentID != "a1" || step.AgentName != "writer" {
		t.Errorf("step agent = %s/%s, want a1/writer", step.AgentID, step.AgentName)
	}

	var deltas []string
	for _, e := range events {
		if p, ok := e.(types.StepProgress); ok {
			deltas = append(deltas, p.Delta)
		}
	}
	if diff := cmp.Diff([]string{"hel", "lo"}, deltas); diff != "" {
		t.Errorf("stream deltas mismatch (-want +got):\n%s", diff)
	}
	if _, ok := events[0].(types.StepStarted); !ok {
		t.Errorf("first event = %T, want StepStarted", events[0])
	}
	if _, ok := events[len(events)-1].(types.StepCompleted); !ok {
		t.Errorf("last event = %T, want StepCompleted", events[len(events)-1])
	}
}

func TestExecutor_RunAgentWithRetry_NoPolicyFailsFast(t *testing.T) {
	backend := &fakeBackend{
		handler: func(int, *types.PromptRequest) (*types.PromptResponse, error) {
			return nil, errors.New("rate limit exceeded")
		},
	}
	exec := workflow.NewExecutor(backend)

	step, err := exec.RunAgentWithRetry(t.Context(), agentSpec("a1", "writer", "sys"), "input", "conv-1", nil)
	if err == nil {
		t.Fatal("want error")
	}
	if backend.callCount() != 1 {
		t.Errorf("attempts = %d, want 1", backend.callCount())
	}
	if step == nil || !step.Failed() {
		t.Errorf("want failed step, got %+v", step)
	}
}

func TestExecutor_RunAgentWithRetry_ExhaustsRetries(t *testing.T) {
	backend := &fakeBackend{
		handler: func(int, *types.PromptRequest) (*types.PromptResponse, error) {
			return nil, errors.New("429: Rate Limit exceeded")
		},
	}
	exec := workflow.NewExecutor(backend).WithRetryPolicy(&types.RetryPolicy{
		MaxRetries: 2,
		Retryable:  []string{"rate limit"},
	})

	_, err := exec.RunAgentWithRetry(t.Context(), agentSpec("a1", "writer", "sys"), "input", "conv-1", nil)
	if err == nil {
		t.Fatal("want error after exhausting retries")
	}
	if backend.callCount() != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", backend.callCount())
	}
}

func TestExecutor_RunAgentWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	backend := &fakeBackend{
		handler: func(int, *types.PromptRequest) (*types.PromptResponse, error) {
			return nil, errors.New("invalid api key")
		},
	}
	exec := workflow.NewExecutor(backend).WithRetryPolicy(&types.RetryPolicy{
		MaxRetries: 5,
		Retryable:  []string{"rate limit", "timeout"},
	})

	_, err := exec.RunAgentWithRetry(t.Context(), agentSpec("a1", "writer", "sys"), "input", "conv-1", nil)
	if err == nil {
		t.Fatal("want error")
	}
	if backend.callCount() != 1 {
		t.Errorf("attempts = %d, want 1", backend.callCount())
	}
}

func TestExecutor_RunAgentWithRetry_SucceedsAfterRetry(t *testing.T) {
	backend := &fakeBackend{
		handler: func(call int, _ *types.PromptRequest) (*types.PromptResponse, error) {
			if call == 0 {
				return nil, errors.New("transient network error")
			}
			return textResponse("recovered"), nil
		},
	}
	exec := workflow.NewExecutor(backend).WithRetryPolicy(&types.RetryPolicy{MaxRetries: 2})

	step, err := exec.RunAgentWithRetry(t.Context(), agentSpec("a1", "writer", "sys"), "input", "conv-1", nil)
	if err != nil {
		t.Fatalf("RunAgentWithRetry: %v", err)
	}
	if step.Output != "recovered" {
		t.Errorf("output = %q, want %q", step.Output, "recovered")
	}
	if backend.callCount() != 2 {
		t.Errorf("attempts = %d, want 2", backend.callCount())
	}
}
