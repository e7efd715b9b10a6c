// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/chatkit-ai/chatkit-go/types"
)

// ExecuteRequest is the input of one workflow execution.
type ExecuteRequest struct {
	// ConversationID is passed to every agent step.
	ConversationID string

	// Input is the raw request to run the workflow over.
	Input string

	// Context is optional extra context, prepended to the first input.
	Context string

	// OnProgress receives workflow and step events. May be nil.
	OnProgress types.ProgressFunc
}

// ExecuteResult is the settled outcome of one workflow execution.
type ExecuteResult struct {
	// Result is the workflow's final output.
	Result string

	// State is a snapshot of the run state at completion.
	State *types.RunState

	// TotalTokens sums token usage over all recorded steps.
	TotalTokens int64

	// ExecutionTime is the wall-clock duration of the run.
	ExecutionTime time.Duration
}

// initialInput combines the optional context with the raw input.
func (r *ExecuteRequest) initialInput() string {
	if r.Context == "" {
		return r.Input
	}
	return r.Context + "\n\n" + r.Input
}

// runner is the state machinery shared by all workflow strategies: one
// RunState per execution, forward-only status transitions, and snapshot /
// reset semantics.
type runner struct {
	exec *Executor
	kind types.WorkflowKind

	mu    sync.Mutex
	state *types.RunState
}

func newRunner(exec *Executor, kind types.WorkflowKind) runner {
	return runner{
		exec:  exec,
		kind:  kind,
		state: types.NewRunState(kind),
	}
}

// begin moves the runner into the running state and emits WorkflowStarted.
// It fails when the runner is already mid-execution or was not Reset after
// a previous run.
func (r *runner) begin(onProgress types.ProgressFunc, totalSteps int) error {
	r.mu.Lock()
	if err := r.state.SetStatus(types.StatusRunning); err != nil {
		r.mu.Unlock()
		return &types.ConfigError{
			Kind:   r.kind,
			Reason: "runner busy or not reset; call Reset between executions",
		}
	}
	r.state.StartedAt = time.Now()
	r.state.TotalSteps = totalSteps
	executionID := r.state.ExecutionID
	r.mu.Unlock()

	// Emit outside the lock so a sink may call State() or Reset().
	emit(onProgress, types.WorkflowStarted{
		ExecutionID: executionID,
		Kind:        r.kind,
		TotalSteps:  totalSteps,
	})
	return nil
}

// record appends a settled step to the run state.
func (r *runner) record(step *types.ExecutionStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.AppendStep(step)
}

// setMeta stashes a strategy-specific value in the run state metadata.
func (r *runner) setMeta(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Metadata[key] = value
}

// complete finishes the run successfully and builds the result envelope.
func (r *runner) complete(onProgress types.ProgressFunc, result string) (*ExecuteResult, error) {
	r.mu.Lock()
	r.state.Result = result
	r.state.CompletedAt = time.Now()
	_ = r.state.SetStatus(types.StatusCompleted)
	executionID := r.state.ExecutionID
	r.mu.Unlock()

	emit(onProgress, types.WorkflowCompleted{
		ExecutionID: executionID,
		Result:      result,
	})

	state := r.State()
	return &ExecuteResult{
		Result:        result,
		State:         state,
		TotalTokens:   state.TotalTokens(),
		ExecutionTime: state.CompletedAt.Sub(state.StartedAt),
	}, nil
}

// fail finishes the run with an error, recording the message into the run
// state and emitting WorkflowFailed before returning err to the caller.
// Cancellation is recorded as its own terminal status.
func (r *runner) fail(onProgress types.ProgressFunc, err error) (*ExecuteResult, error) {
	r.mu.Lock()
	r.state.Error = err.Error()
	r.state.CompletedAt = time.Now()
	if errors.Is(err, types.ErrCancelled) {
		_ = r.state.SetStatus(types.StatusCancelled)
	} else {
		_ = r.state.SetStatus(types.StatusError)
	}
	executionID := r.state.ExecutionID
	r.mu.Unlock()

	emit(onProgress, types.WorkflowFailed{
		ExecutionID: executionID,
		Err:         err.Error(),
	})
	return nil, err
}

// cancelled maps a context error to the distinguished cancellation error.
func (r *runner) cancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return types.ErrCancelled
	}
	return nil
}

// State returns a deep-copied snapshot of the run state.
func (r *runner) State() *types.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := new(types.RunState)
	if err := deepcopy.Copy(snapshot, r.state); err != nil {
		// RunState contains only copyable fields; a failure here is a
		// programming error.
		panic(err)
	}
	return snapshot
}

// Reset discards the run state so the runner can execute again. It must be
// called between executions of the same runner instance.
func (r *runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = types.NewRunState(r.kind)
}
