// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chatkit-ai/chatkit-go/types"
	"github.com/chatkit-ai/chatkit-go/workflow"
)

func TestNewParallel_Validation(t *testing.T) {
	if _, err := workflow.NewParallel(&fakeBackend{}, workflow.ParallelConfig{}); err == nil {
		t.Error("want error for zero agents")
	}
	_, err := workflow.NewParallel(&fakeBackend{}, workflow.ParallelConfig{
		Agents:   []*types.AgentSpec{agentSpec("a1", "one", "s1")},
		Strategy: workflow.AggregateCustom,
	})
	if err == nil {
		t.Error("want error for custom strategy without AggregateFunc")
	}
}

func TestParallel_VoteAggregation(t *testing.T) {
	backend := &fakeBackend{
		handler: bySystemPrompt(map[string]string{
			"s1": "A",
			"s2": "a ",
			"s3": "B",
		}),
	}
	par, err := workflow.NewParallel(backend, workflow.ParallelConfig{
		Agents: []*types.AgentSpec{
			agentSpec("a1", "one", "s1"),
			agentSpec("a2", "two", "s2"),
			agentSpec("a3", "three", "s3"),
		},
		Strategy: workflow.AggregateVote,
	})
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}

	res, err := par.Execute(t.Context(), &workflow.ExecuteRequest{Input: "pick"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Result != "A" {
		t.Errorf("vote winner = %q, want %q (2 normalized votes beat 1)", res.Result, "A")
	}
}

func TestParallel_MinSuccessfulNotMet(t *testing.T) {
	backend := &fakeBackend{
		handler: func(_ int, req *types.PromptRequest) (*types.PromptResponse, error) {
			if req.SystemPrompt != "s1" {
				return nil, errors.New("provider unavailable")
			}
			return textResponse("only one"), nil
		},
	}
	par, err := workflow.NewParallel(backend, workflow.ParallelConfig{
		Agents: []*types.AgentSpec{
			agentSpec("a1", "one", "s1"),
			agentSpec("a2", "two", "s2"),
			agentSpec("a3", "three", "s3"),
		},
		MinSuccessful: 2,
	})
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}

	_, err = par.Execute(t.Context(), &workflow.ExecuteRequest{Input: "go"})
	var aggErr *types.AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("want AggregateError, got %v", err)
	}
	if !strings.Contains(err.Error(), "1/2") {
		t.Errorf("error %q should report 1/2", err.Error())
	}
	if got := par.State().Status; got != types.StatusError {
		t.Errorf("status = %s, want error", got)
	}
}

func TestParallel_ConcatenatePreservesInputOrder(t *testing.T) {
	backend := &fakeBackend{
		handler: func(_ int, req *types.PromptRequest) (*types.PromptResponse, error) {
			// The first agent settles last.
			if req.SystemPrompt == "s1" {
				time.Sleep(20 * time.Millisecond)
				return textResponse("slow output"), nil
			}
			return textResponse("fast output"), nil
		},
	}
	par, err := workflow.NewParallel(backend, workflow.ParallelConfig{
		Agents: []*types.AgentSpec{
			agentSpec("a1", "alpha", "s1"),
			agentSpec("a2", "beta", "s2"),
		},
	})
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}

	res, err := par.Execute(t.Context(), &workflow.ExecuteRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	alpha := strings.Index(res.Result, "## alpha")
	beta := strings.Index(res.Result, "## beta")
	if alpha < 0 || beta < 0 || alpha > beta {
		t.Errorf("sections out of input order:\n%s", res.Result)
	}
	if !strings.Contains(res.Result, "\n\n---\n\n") {
		t.Errorf("missing section separator:\n%s", res.Result)
	}
}

func TestParallel_SynthesizerReplacesAggregate(t *testing.T) {
	backend := &fakeBackend{
		handler: bySystemPrompt(map[string]string{
			"s1":    "draft one",
			"s2":    "draft two",
			"synth": "the synthesis",
		}),
	}
	par, err := workflow.NewParallel(backend, workflow.ParallelConfig{
		Agents: []*types.AgentSpec{
			agentSpec("a1", "one", "s1"),
			agentSpec("a2", "two", "s2"),
		},
		Synthesizer: agentSpec("syn", "synthesizer", "synth"),
	})
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}

	res, err := par.Execute(t.Context(), &workflow.ExecuteRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Result != "the synthesis" {
		t.Errorf("result = %q, want synthesizer output", res.Result)
	}
	if len(res.State.Steps) != 3 {
		t.Errorf("steps = %d, want 3 (2 agents + synthesizer)", len(res.State.Steps))
	}

	// The synthesizer receives the aggregate.
	last := backend.call(backend.callCount() - 1)
	if !strings.Contains(last.Input, "draft one") || !strings.Contains(last.Input, "draft two") {
		t.Errorf("synthesizer input missing aggregate: %q", last.Input)
	}
}

func TestParallel_FirstCompletedRace(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	backend := &fakeBackend{
		handler: func(_ int, req *types.PromptRequest) (*types.PromptResponse, error) {
			if req.SystemPrompt == "slow" {
				<-release
				return textResponse("too late"), nil
			}
			return textResponse("winner"), nil
		},
	}
	par, err := workflow.NewParallel(backend, workflow.ParallelConfig{
		Agents: []*types.AgentSpec{
			agentSpec("a1", "tortoise", "slow"),
			agentSpec("a2", "hare", "fast"),
		},
		FirstCompleted: true,
		Strategy:       workflow.AggregateFirst,
	})
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}

	res, err := par.Execute(t.Context(), &workflow.ExecuteRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Result != "winner" {
		t.Errorf("result = %q, want %q", res.Result, "winner")
	}
	if len(res.State.Steps) != 1 {
		t.Errorf("steps = %d, want 1", len(res.State.Steps))
	}
}

func TestParallel_MaxWaitFallsBackToPartialResults(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	backend := &fakeBackend{
		handler: func(_ int, req *types.PromptRequest) (*types.PromptResponse, error) {
			if req.SystemPrompt == "slow" {
				<-release
				return textResponse("too late"), nil
			}
			return textResponse("on time"), nil
		},
	}
	par, err := workflow.NewParallel(backend, workflow.ParallelConfig{
		Agents: []*types.AgentSpec{
			agentSpec("a1", "fast", "fast"),
			agentSpec("a2", "stuck", "slow"),
		},
		MaxWait: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}

	res, err := par.Execute(t.Context(), &workflow.ExecuteRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Result, "on time") || strings.Contains(res.Result, "too late") {
		t.Errorf("partial result wrong: %q", res.Result)
	}
	if len(res.State.Steps) != 1 {
		t.Errorf("steps = %d, want 1 settled step", len(res.State.Steps))
	}
}

func TestParallel_CustomAggregation(t *testing.T) {
	backend := &fakeBackend{
		handler: bySystemPrompt(map[string]string{"s1": "x", "s2": "y"}),
	}
	par, err := workflow.NewParallel(backend, workflow.ParallelConfig{
		Agents: []*types.AgentSpec{
			agentSpec("a1", "one", "s1"),
			agentSpec("a2", "two", "s2"),
		},
		Strategy: workflow.AggregateCustom,
		AggregateFunc: func(outputs []string, steps []*types.ExecutionStep) (string, error) {
			return strings.Join(outputs, "+"), nil
		},
	})
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}

	res, err := par.Execute(t.Context(), &workflow.ExecuteRequest{Input: "go"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Result != "x+y" {
		t.Errorf("result = %q, want x+y", res.Result)
	}
}
