// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/chatkit-ai/chatkit-go/types"
)

const (
	// DefaultMaxIterations bounds the evaluate-optimize loop.
	DefaultMaxIterations = 5

	// DefaultQualityThreshold is the score at which an output is acceptable.
	DefaultQualityThreshold = 90
)

// EvaluatorConfig configures an [EvaluatorOptimizer] runner. It is
// validated once, at construction.
type EvaluatorConfig struct {
	// Generator produces the initial output. Required.
	Generator *types.AgentSpec

	// Evaluator scores each candidate output. Required.
	Evaluator *types.AgentSpec

	// Optimizer refines the output between iterations. Required.
	Optimizer *types.AgentSpec

	// MaxIterations bounds the loop. Defaults to DefaultMaxIterations.
	MaxIterations int

	// QualityThreshold is the acceptable score, 0-100. Defaults to
	// DefaultQualityThreshold.
	QualityThreshold int

	// MinImprovement stops the loop when an iteration improves the score by
	// less than this amount without regressing. Zero disables the rule.
	MinImprovement int

	// Criteria is prepended to the evaluator prompt.
	Criteria string

	// ShouldStop, when set, fully overrides the stopping rules. previous is
	// nil on the first iteration.
	ShouldStop func(iteration int, evaluation, previous *types.EvaluationResult) bool

	// ReturnAllIterations returns a transcript of every iteration instead
	// of only the final output.
	ReturnAllIterations bool

	// RetryPolicy bounds per-step retries. Nil fails fast.
	RetryPolicy *types.RetryPolicy
}

// EvaluatorOptimizer iterates generate, evaluate, refine until a quality
// threshold or stopping rule is met.
type EvaluatorOptimizer struct {
	runner
	config EvaluatorConfig
}

// NewEvaluatorOptimizer creates an evaluator-optimizer runner over the
// given backend.
func NewEvaluatorOptimizer(backend types.ChatBackend, config EvaluatorConfig) (*EvaluatorOptimizer, error) {
	if config.Generator == nil || config.Evaluator == nil || config.Optimizer == nil {
		return nil, &types.ConfigError{Kind: types.WorkflowEvaluatorOptimizer, Reason: "generator, evaluator and optimizer agents are all required"}
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.QualityThreshold <= 0 {
		config.QualityThreshold = DefaultQualityThreshold
	}

	exec := NewExecutor(backend).WithRetryPolicy(config.RetryPolicy)
	return &EvaluatorOptimizer{
		runner: newRunner(exec, types.WorkflowEvaluatorOptimizer),
		config: config,
	}, nil
}

// iteration is one evaluate(-optimize) round.
type iteration struct {
	output     string
	evaluation *types.EvaluationResult
}

// Execute runs the loop. Any per-step error, after retries, aborts the
// whole run.
func (e *EvaluatorOptimizer) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResult, error) {
	// Upper bound: the generation step plus an evaluation and an
	// optimization per iteration.
	if err := e.begin(req.OnProgress, 1+2*e.config.MaxIterations); err != nil {
		return nil, err
	}

	input := req.initialInput()

	genStep, err := e.exec.RunAgentWithRetry(ctx, e.config.Generator, input, req.ConversationID, req.OnProgress)
	if genStep != nil {
		e.record(genStep)
	}
	if err != nil {
		return e.fail(req.OnProgress, err)
	}
	output := genStep.Output

	var (
		iterations []iteration
		previous   *types.EvaluationResult
	)
	for i := 1; i <= e.config.MaxIterations; i++ {
		if err := e.cancelled(ctx); err != nil {
			return e.fail(req.OnProgress, err)
		}

		evalStep, err := e.exec.RunAgentWithRetry(ctx, e.config.Evaluator, evaluationInput(e.config.Criteria, input, output), req.ConversationID, req.OnProgress)
		if evalStep != nil {
			e.record(evalStep)
		}
		if err != nil {
			return e.fail(req.OnProgress, err)
		}

		evaluation := ParseEvaluation(evalStep.Output, e.config.QualityThreshold)
		iterations = append(iterations, iteration{output: output, evaluation: evaluation})

		if e.shouldStop(i, evaluation, previous) || i == e.config.MaxIterations {
			break
		}

		optStep, err := e.exec.RunAgentWithRetry(ctx, e.config.Optimizer, optimizationInput(input, output, evaluation.Feedback), req.ConversationID, req.OnProgress)
		if optStep != nil {
			e.record(optStep)
		}
		if err != nil {
			return e.fail(req.OnProgress, err)
		}
		output = optStep.Output
		previous = evaluation
	}

	scores := make([]int, len(iterations))
	for i, it := range iterations {
		scores[i] = it.evaluation.Score
	}
	e.setMeta("scores", scores)

	result := output
	if e.config.ReturnAllIterations {
		result = transcript(iterations)
	}
	return e.complete(req.OnProgress, result)
}

// shouldStop applies the configured stopping rules after an evaluation.
func (e *EvaluatorOptimizer) shouldStop(iter int, evaluation, previous *types.EvaluationResult) bool {
	if e.config.ShouldStop != nil {
		return e.config.ShouldStop(iter, evaluation, previous)
	}
	if evaluation.Score >= e.config.QualityThreshold {
		return true
	}
	if previous != nil && e.config.MinImprovement > 0 {
		delta := evaluation.Score - previous.Score
		// A score drop keeps iterating; only a stalled non-negative delta
		// stops the loop.
		if delta >= 0 && delta < e.config.MinImprovement {
			return true
		}
	}
	return false
}

// transcript formats every iteration plus a final-score footer.
func transcript(iterations []iteration) string {
	sections := make([]string, len(iterations))
	for i, it := range iterations {
		sections[i] = fmt.Sprintf("### Iteration %d (score %d/100)\n\n%s", i+1, it.evaluation.Score, it.output)
	}
	final := iterations[len(iterations)-1].evaluation.Score
	return strings.Join(sections, sectionSeparator) + fmt.Sprintf("%sFinal score: %d/100", sectionSeparator, final)
}

// Evaluator output markers.
var (
	scoreRe    = regexp.MustCompile(`(?i)SCORE:\s*(\d+)`)
	scoreAltRe = regexp.MustCompile(`(\d+)\s*/\s*100`)
	feedbackRe = regexp.MustCompile(`(?is)FEEDBACK:\s*(.+)`)
	sectionRe  = regexp.MustCompile(`(?m)^[A-Z]+:`)
)

// jsonEvaluation is the accepted shape of a JSON evaluator response.
type jsonEvaluation struct {
	Score       *int     `json:"score"`
	Feedback    string   `json:"feedback"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// ParseEvaluation parses an evaluator agent's output into a structured
// result. JSON is tried first, then the SCORE/FEEDBACK/ISSUES/SUGGESTIONS
// line format. An unparsable score defaults to 0; the raw text is always
// retained.
func ParseEvaluation(raw string, threshold int) *types.EvaluationResult {
	result := &types.EvaluationResult{Raw: raw}

	var parsed jsonEvaluation
	if err := sonic.ConfigFastest.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err == nil && parsed.Score != nil {
		result.Score = clampScore(*parsed.Score)
		result.Feedback = parsed.Feedback
		result.Issues = parsed.Issues
		result.Suggestions = parsed.Suggestions
		result.Acceptable = result.Score >= threshold
		return result
	}

	if m := scoreRe.FindStringSubmatch(raw); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			result.Score = clampScore(score)
		}
	} else if m := scoreAltRe.FindStringSubmatch(raw); m != nil {
		if score, err := strconv.Atoi(m[1]); err == nil {
			result.Score = clampScore(score)
		}
	}

	if m := feedbackRe.FindStringSubmatch(raw); m != nil {
		feedback := m[1]
		// Cut trailing ISSUES:/SUGGESTIONS: sections out of the feedback.
		if loc := sectionRe.FindStringIndex(feedback); loc != nil {
			feedback = feedback[:loc[0]]
		}
		result.Feedback = strings.TrimSpace(feedback)
	}

	result.Issues = parseListSection(raw, "ISSUES:")
	result.Suggestions = parseListSection(raw, "SUGGESTIONS:")
	result.Acceptable = result.Score >= threshold
	return result
}

// parseListSection extracts the bulleted or bare lines following a section
// marker, stopping at a blank line or the next section.
func parseListSection(raw, marker string) []string {
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return nil
	}

	var items []string
	for _, line := range strings.Split(raw[idx+len(marker):], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(items) > 0 {
				break
			}
			continue
		}
		if sectionRe.MatchString(line) {
			break
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "-*"))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
