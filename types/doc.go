// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

// Package types defines the core data model and service contracts shared
// across chatkit-go: agent descriptors, execution steps and run state for
// the workflow layer, conversation and message records for the store layer,
// and the ChatBackend contract that connects the two to an LLM provider.
//
// Everything in this package is either an immutable descriptor created by
// the caller before a run (AgentSpec, RouteSpec, RetryPolicy) or a record
// owned by exactly one runner or store instance (RunState, ExecutionStep,
// Conversation, Message). Nothing here performs I/O.
package types
