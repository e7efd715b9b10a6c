// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chatkit-ai/chatkit-go/types"
)

// SequentialConfig configures a [Sequential] runner. It is validated once,
// at construction.
type SequentialConfig struct {
	// Agents are executed in order. At least one is required.
	Agents []*types.AgentSpec

	// Transform, when set, rewrites each step's output before it becomes
	// the next input. A transform error is fatal and is not retried.
	Transform func(output string, index int) (string, error)

	// EarlyStop, when set and returning true, stops the chain and uses the
	// current output as the final result.
	EarlyStop func(output string, index int) bool

	// FullContext switches the next input from the raw previous output
	// (chain mode, the default) to a labeled concatenation of all prior
	// outputs prefixed with the original request.
	FullContext bool

	// Timeout is a cumulative wall-clock budget checked before each step.
	// Zero disables it.
	Timeout time.Duration

	// RetryPolicy bounds per-step retries. Nil fails fast.
	RetryPolicy *types.RetryPolicy
}

// Sequential chains agents, feeding each agent's output as the next
// agent's input.
type Sequential struct {
	runner
	config SequentialConfig
}

// NewSequential creates a sequential runner over the given backend.
func NewSequential(backend types.ChatBackend, config SequentialConfig) (*Sequential, error) {
	if len(config.Agents) == 0 {
		return nil, &types.ConfigError{Kind: types.WorkflowSequential, Reason: "at least one agent is required"}
	}

	exec := NewExecutor(backend).WithRetryPolicy(config.RetryPolicy)
	return &Sequential{
		runner: newRunner(exec, types.WorkflowSequential),
		config: config,
	}, nil
}

// Execute runs the chain. Any per-step error, after retries, aborts the
// whole run.
func (s *Sequential) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResult, error) {
	if err := s.begin(req.OnProgress, len(s.config.Agents)); err != nil {
		return nil, err
	}
	start := time.Now()

	input := req.initialInput()
	result := input
	for i, agent := range s.config.Agents {
		if err := s.cancelled(ctx); err != nil {
			return s.fail(req.OnProgress, err)
		}
		if s.config.Timeout > 0 && time.Since(start) > s.config.Timeout {
			return s.fail(req.OnProgress, types.ErrTimeout)
		}

		step, err := s.exec.RunAgentWithRetry(ctx, agent, input, req.ConversationID, req.OnProgress)
		if step != nil {
			s.record(step)
		}
		if err != nil {
			return s.fail(req.OnProgress, err)
		}

		output := step.Output
		if s.config.Transform != nil {
			output, err = s.config.Transform(output, i)
			if err != nil {
				return s.fail(req.OnProgress, fmt.Errorf("transform after step %d: %w", i, err))
			}
		}

		if s.config.EarlyStop != nil && s.config.EarlyStop(output, i) {
			result = output
			break
		}

		if s.config.FullContext {
			input = s.fullContextInput(req.initialInput(), output, i)
		} else {
			input = output
		}
		result = output
	}

	return s.complete(req.OnProgress, result)
}

// fullContextInput rebuilds the next input from the original request and
// every output produced so far, labeled per agent.
func (s *Sequential) fullContextInput(original, latest string, index int) string {
	var sb strings.Builder
	sb.WriteString("Original request: ")
	sb.WriteString(original)

	state := s.State()
	for i, step := range state.Steps {
		output := step.Output
		if i == index {
			// The latest output may have been transformed.
			output = latest
		}
		fmt.Fprintf(&sb, "\n\nStep %d (%s):\n%s", i+1, step.AgentName, output)
	}
	return sb.String()
}
