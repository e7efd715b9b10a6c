// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

// ModelConfig overrides the backend's default model for a single agent.
type ModelConfig struct {
	// Provider is the provider name, e.g. "anthropic", "google" or "openai".
	Provider string

	// Model is the provider model identifier, e.g. "claude-3-5-haiku-latest".
	Model string

	// Temperature is the sampling temperature. Nil means provider default.
	Temperature *float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// AgentSpec is an immutable descriptor of one agent in a workflow.
//
// An AgentSpec is created by the caller before a run and is never mutated
// during execution; the same spec may appear in multiple workflows.
type AgentSpec struct {
	// ID is the caller-chosen identifier, unique within a workflow.
	ID string

	// Name is the display name used in progress events and aggregated output.
	Name string

	// Role is a free-form role label, e.g. "researcher" or "critic".
	Role string

	// SystemPrompt is the system prompt sent with every invocation.
	SystemPrompt string

	// Model optionally overrides the backend's default model configuration.
	Model *ModelConfig

	// MaxSteps bounds the backend's internal reasoning steps, for backends
	// that run tool loops. Backends without tool loops ignore it.
	MaxSteps int

	// Metadata is a free-form bag carried through untouched.
	Metadata map[string]any
}

// WithModel returns a copy of the spec with the given model configuration.
func (a AgentSpec) WithModel(config *ModelConfig) *AgentSpec {
	a.Model = config
	return &a
}
