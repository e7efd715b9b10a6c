// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a run is cancelled through its context.
// Cancellation is advisory: it is checked at step boundaries, not mid-stream.
var ErrCancelled = errors.New("workflow cancelled by user")

// ErrTimeout is returned when a run exceeds its cumulative time budget.
var ErrTimeout = errors.New("workflow timeout exceeded")

// ConfigError reports an invalid workflow configuration. It is raised at
// construction time, before any agent is invoked, and is never retried.
type ConfigError struct {
	Kind   WorkflowKind
	Reason string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s workflow config: %s", e.Kind, e.Reason)
}

// AggregateError reports that a fan-out produced fewer successful results
// than the configured minimum. It is raised after fan-in and never retried.
type AggregateError struct {
	Succeeded int
	Required  int
	Launched  int
	// Causes holds the per-agent failures, in input order.
	Causes []error
}

// Error implements error.
func (e *AggregateError) Error() string {
	return fmt.Sprintf("insufficient successful agents: %d/%d (launched %d)",
		e.Succeeded, e.Required, e.Launched)
}

// Unwrap exposes the per-agent failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Causes
}
