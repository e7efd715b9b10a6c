// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"time"

	"github.com/google/uuid"
)

// TokenUsage is the token accounting for one backend call.
type TokenUsage struct {
	Prompt     int64 `json:"prompt"`
	Completion int64 `json:"completion"`
	Total      int64 `json:"total"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Prompt += other.Prompt
	u.Completion += other.Completion
	u.Total += other.Total
}

// ExecutionStep records one completed or failed agent invocation.
//
// A step is created by a runner immediately before invoking an agent and
// appended to the run state after the invocation settles. Once appended it
// is immutable.
type ExecutionStep struct {
	// ID is the unique identifier of the step.
	ID string `json:"id"`

	// AgentID and AgentName identify the invoked agent.
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`

	// Input is the text sent to the agent.
	Input string `json:"input"`

	// Output is the collected streamed text. Empty if the step failed.
	Output string `json:"output"`

	// StartedAt is when the backend call began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the backend call, retries included
	// in the attempt that produced this step but not across attempts.
	Duration time.Duration `json:"duration"`

	// Usage is the token accounting reported by the backend.
	Usage TokenUsage `json:"usage"`

	// Error holds the failure message when the invocation failed.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the step recorded a failure.
func (s *ExecutionStep) Failed() bool {
	return s.Error != ""
}

// NewStepID returns a unique identifier for an [ExecutionStep].
func NewStepID() string {
	return "step-" + uuid.New().String()
}
