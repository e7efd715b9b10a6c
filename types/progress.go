// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

// ProgressEvent is a notification emitted by a runner while a workflow
// executes. It is a closed union: each event kind is its own struct so call
// sites switch on the concrete type instead of a string tag.
//
// Progress sinks are fire-and-forget. Runners invoke them synchronously and
// do not guard against a sink that panics.
type ProgressEvent interface {
	progressEvent()
}

// ProgressFunc receives progress events. A nil ProgressFunc is valid and
// disables progress reporting.
type ProgressFunc func(ProgressEvent)

// WorkflowStarted is emitted once, before the first agent invocation.
type WorkflowStarted struct {
	ExecutionID string
	Kind        WorkflowKind
	TotalSteps  int
}

// StepStarted is emitted immediately before a backend call.
type StepStarted struct {
	StepID    string
	AgentID   string
	AgentName string
}

// StepProgress carries one streamed text delta of an in-flight step.
type StepProgress struct {
	StepID string
	Delta  string
}

// StepCompleted is emitted after a step settles successfully.
type StepCompleted struct {
	Step *ExecutionStep
}

// StepFailed is emitted after a step settles with an error. For retried
// steps one StepFailed is emitted per failed attempt.
type StepFailed struct {
	Step *ExecutionStep
	Err  string
}

// WorkflowCompleted is emitted once, after the final result is known.
type WorkflowCompleted struct {
	ExecutionID string
	Result      string
}

// WorkflowFailed is emitted once, before the runner returns an error.
type WorkflowFailed struct {
	ExecutionID string
	Err         string
}

func (WorkflowStarted) progressEvent()   {}
func (StepStarted) progressEvent()       {}
func (StepProgress) progressEvent()      {}
func (StepCompleted) progressEvent()     {}
func (StepFailed) progressEvent()        {}
func (WorkflowCompleted) progressEvent() {}
func (WorkflowFailed) progressEvent()    {}
