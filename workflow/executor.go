// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatkit-ai/chatkit-go/pkg/logging"
	"github.com/chatkit-ai/chatkit-go/types"
)

// Executor runs single agent steps against a chat backend.
//
// It is the shared substrate of all workflow runners: one step is one
// backend call with its streamed output collected, token usage and timing
// recorded, and progress events emitted.
type Executor struct {
	backend types.ChatBackend
	retry   *types.RetryPolicy
}

// NewExecutor creates an [Executor] over the given backend.
func NewExecutor(backend types.ChatBackend) *Executor {
	return &Executor{backend: backend}
}

// WithRetryPolicy sets the retry policy for [Executor.RunAgentWithRetry].
func (e *Executor) WithRetryPolicy(policy *types.RetryPolicy) *Executor {
	e.retry = policy
	return e
}

// RunAgent executes one agent step: it sends input to the chat backend
// under the agent's system prompt and model configuration, streams deltas
// to onProgress, and returns the settled step.
//
// The returned step is non-nil even on failure, with Error populated, so
// callers that tolerate per-agent failures can still record it.
func (e *Executor) RunAgent(ctx context.Context, agent *types.AgentSpec, input, conversationID string, onProgress types.ProgressFunc) (*types.ExecutionStep, error) {
	logger := logging.FromContext(ctx)

	step := &types.ExecutionStep{
		ID:        types.NewStepID(),
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Input:     input,
		StartedAt: time.Now(),
	}

	emit(onProgress, types.StepStarted{
		StepID:    step.ID,
		AgentID:   agent.ID,
		AgentName: agent.Name,
	})

	resp, err := e.backend.SendPrompt(ctx, &types.PromptRequest{
		ConversationID: conversationID,
		Input:          input,
		SystemPrompt:   agent.SystemPrompt,
		Model:          agent.Model,
		MaxSteps:       agent.MaxSteps,
		OnChunk: func(delta string) {
			emit(onProgress, types.StepProgress{StepID: step.ID, Delta: delta})
		},
	})
	step.Duration = time.Since(step.StartedAt)

	if err != nil {
		step.Error = err.Error()
		logger.WarnContext(ctx, "agent step failed",
			slog.String("agent", agent.Name),
			slog.String("error", step.Error),
		)
		emit(onProgress, types.StepFailed{Step: step, Err: step.Error})
		return step, fmt.Errorf("agent %q: %w", agent.Name, err)
	}

	step.Output = resp.Content
	step.Usage = resp.Usage
	logger.DebugContext(ctx, "agent step completed",
		slog.String("agent", agent.Name),
		slog.Duration("duration", step.Duration),
		slog.Int64("tokens", step.Usage.Total),
	)
	emit(onProgress, types.StepCompleted{Step: step})

	return step, nil
}

// RunAgentWithRetry wraps [Executor.RunAgent] with the configured retry
// policy: up to MaxRetries retries with a fixed delay between attempts,
// re-raising immediately on a non-retryable error. Without a policy it is
// a direct passthrough and fails fast.
func (e *Executor) RunAgentWithRetry(ctx context.Context, agent *types.AgentSpec, input, conversationID string, onProgress types.ProgressFunc) (*types.ExecutionStep, error) {
	if e.retry == nil || e.retry.MaxRetries <= 0 {
		return e.RunAgent(ctx, agent, input, conversationID, onProgress)
	}

	var (
		lastStep *types.ExecutionStep
		lastErr  error
	)
	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		step, err := e.RunAgent(ctx, agent, input, conversationID, onProgress)
		if err == nil {
			return step, nil
		}
		lastStep, lastErr = step, err

		if !e.retry.ShouldRetry(err) || attempt == e.retry.MaxRetries {
			break
		}

		select {
		case <-time.After(e.retry.Delay):
		case <-ctx.Done():
			return lastStep, types.ErrCancelled
		}
	}

	return lastStep, lastErr
}

// emit delivers an event to a possibly-nil progress sink. Sinks are
// fire-and-forget and must not panic; the runner does not guard them.
func emit(onProgress types.ProgressFunc, event types.ProgressEvent) {
	if onProgress != nil {
		onProgress(event)
	}
}
