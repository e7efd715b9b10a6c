// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

// Package workflow orchestrates multi-agent runs over a chat backend.
//
// Four strategies share one execution substrate:
//
//   - [Sequential] chains agents, feeding each agent's (possibly
//     transformed) output as the next agent's input.
//   - [Parallel] fans the same input out to all agents concurrently and
//     aggregates the outputs by concatenation, majority vote, first result
//     or a caller-supplied function, optionally through a synthesizer agent.
//   - [Routing] classifies the input with a router agent and dispatches to
//     one or more declared routes, or a fallback agent.
//   - [EvaluatorOptimizer] iterates generate, evaluate, refine until a
//     quality threshold or stopping rule is met.
//
// All strategies execute individual agents through the [Executor], which
// streams the agent's output, records token usage and timing into an
// [types.ExecutionStep], and retries failed calls under an optional
// [types.RetryPolicy].
//
// Each runner owns one [types.RunState] per execution. A runner instance
// is not safe for concurrent executions: call Reset between reuses. Callers
// observe a run through a [types.ProgressFunc] receiving workflow and step
// events, and cancel it through the [context.Context] passed to Execute;
// cancellation is checked at step boundaries and surfaces as
// [types.ErrCancelled].
package workflow
