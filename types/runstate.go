// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkflowKind identifies the orchestration strategy of a run.
type WorkflowKind string

const (
	WorkflowSequential         WorkflowKind = "sequential"
	WorkflowParallel           WorkflowKind = "parallel"
	WorkflowRouting            WorkflowKind = "routing"
	WorkflowEvaluatorOptimizer WorkflowKind = "evaluator-optimizer"
)

// RunStatus is the lifecycle state of a [RunState].
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
	StatusCancelled RunStatus = "cancelled"
)

// validTransitions is the allowed status graph: idle -> running ->
// {completed, error, cancelled}. Terminal states have no successors.
var validTransitions = map[RunStatus][]RunStatus{
	StatusIdle:    {StatusRunning},
	StatusRunning: {StatusCompleted, StatusError, StatusCancelled},
}

// RunState is the per-execution record of a workflow run.
//
// Each RunState is owned exclusively by the runner instance that created it.
// It is never shared across concurrent runs of the same runner; reuse of a
// runner requires Reset between executions.
type RunState struct {
	// ExecutionID is unique per run.
	ExecutionID string `json:"execution_id"`

	// Kind is the workflow strategy that produced this run.
	Kind WorkflowKind `json:"kind"`

	// Status is the lifecycle state. Transitions only move forward.
	Status RunStatus `json:"status"`

	// Steps is the ordered list of settled agent invocations.
	Steps []*ExecutionStep `json:"steps"`

	// CurrentStep always equals len(Steps) after any mutation.
	CurrentStep int `json:"current_step"`

	// TotalSteps is the planned step count, where the strategy knows it.
	TotalSteps int `json:"total_steps"`

	// Result is the final output once the run completed.
	Result string `json:"result,omitempty"`

	// Error is the failure message once the run errored or was cancelled.
	Error string `json:"error,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`

	// Metadata stashes strategy-specific results, such as the routing
	// classification or the evaluator score list.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewRunState returns an idle run state for the given workflow kind.
func NewRunState(kind WorkflowKind) *RunState {
	return &RunState{
		ExecutionID: NewExecutionID(),
		Kind:        kind,
		Status:      StatusIdle,
		Metadata:    make(map[string]any),
	}
}

// SetStatus moves the run to the given status, enforcing the forward-only
// transition graph.
func (s *RunState) SetStatus(to RunStatus) error {
	for _, next := range validTransitions[s.Status] {
		if next == to {
			s.Status = to
			return nil
		}
	}
	return fmt.Errorf("invalid status transition %s -> %s", s.Status, to)
}

// AppendStep appends a settled step and keeps CurrentStep equal to the
// number of recorded steps.
func (s *RunState) AppendStep(step *ExecutionStep) {
	s.Steps = append(s.Steps, step)
	s.CurrentStep = len(s.Steps)
}

// TotalTokens sums the token usage across all recorded steps.
func (s *RunState) TotalTokens() int64 {
	var total int64
	for _, step := range s.Steps {
		total += step.Usage.Total
	}
	return total
}

// NewExecutionID returns a unique identifier for a [RunState].
func NewExecutionID() string {
	return "exec-" + uuid.New().String()
}
