// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/chatkit-ai/chatkit-go/types"
)

// defaultClassificationPrompt builds the router agent's instruction from
// the declared routes.
func defaultClassificationPrompt(routes []*types.RouteSpec) string {
	var catalog strings.Builder
	for _, route := range routes {
		fmt.Fprintf(&catalog, "- %s: %s\n", route.ID, route.Description)
	}

	return heredoc.Doc(`
		Classify the user request below into one or more of these routes:

	`) + catalog.String() + heredoc.Doc(`

		Respond with JSON of the form {"routes": ["<route id>", ...]} or
		{"route": "<route id>", "reasoning": "...", "confidence": 0.0-1.0}.
		User request follows.
	`)
}

// evaluationInput builds the evaluator agent's prompt over the original
// request and the candidate output.
func evaluationInput(criteria, original, output string) string {
	prompt := heredoc.Doc(`
		Evaluate the response below against the original request.
		Reply in this format:

		SCORE: <0-100>
		FEEDBACK: <what should improve>
		ISSUES:
		- <issue>
		SUGGESTIONS:
		- <suggestion>
	`)
	if criteria != "" {
		prompt = criteria + "\n\n" + prompt
	}

	return fmt.Sprintf("%s\nOriginal request:\n%s\n\nResponse to evaluate:\n%s", prompt, original, output)
}

// optimizationInput builds the optimizer agent's prompt over the original
// request, the current output and the evaluator's feedback.
func optimizationInput(original, output, feedback string) string {
	return heredoc.Doc(`
		Improve the response below. Address the feedback while staying
		faithful to the original request. Reply with the improved response
		only.
	`) + fmt.Sprintf("\nOriginal request:\n%s\n\nCurrent response:\n%s\n\nFeedback:\n%s", original, output, feedback)
}
