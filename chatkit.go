// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatkit is a chat application core: conversation and message
// stores with persistence, chat backends over LLM provider APIs, and a
// multi-agent workflow orchestration layer (sequential, parallel, routing,
// evaluator-optimizer) that chains calls to a chat backend.
package chatkit

// Version is the version of chatkit-go.
var Version = "v0.0.0"
