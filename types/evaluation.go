// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

// EvaluationResult is the structured form of one evaluator verdict in an
// evaluator-optimizer run.
type EvaluationResult struct {
	// Score is 0-100. Zero when the evaluator output was unparsable.
	Score int `json:"score"`

	// Feedback is the evaluator's prose feedback for the optimizer.
	Feedback string `json:"feedback"`

	// Acceptable is true when Score met the configured quality threshold.
	Acceptable bool `json:"acceptable"`

	// Issues and Suggestions are optional line-delimited lists from the
	// evaluator output.
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Raw retains the unparsed evaluator output for audit.
	Raw string `json:"raw"`
}
