// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chatkit-ai/chatkit-go/types"
)

// Aggregation selects how a [Parallel] runner combines agent outputs.
type Aggregation int

const (
	// AggregateConcatenate joins per-agent sections in input order.
	AggregateConcatenate Aggregation = iota

	// AggregateVote picks the majority output after trimming and case
	// folding. Ties resolve to the first-seen output; that order is an
	// implementation detail, not a contract.
	AggregateVote

	// AggregateFirst picks the first output in input order.
	AggregateFirst

	// AggregateCustom delegates to ParallelConfig.AggregateFunc.
	AggregateCustom
)

// sectionSeparator joins per-agent output blocks in combined results.
const sectionSeparator = "\n\n---\n\n"

// ParallelConfig configures a [Parallel] runner. It is validated once, at
// construction.
type ParallelConfig struct {
	// Agents all receive the same input. At least one is required.
	Agents []*types.AgentSpec

	// FirstCompleted switches to race mode: the run settles on the first
	// agent to finish and the rest are abandoned. Default is to wait for
	// all agents.
	FirstCompleted bool

	// MaxWait bounds the join when waiting for all agents; on expiry the
	// run proceeds with whichever agents have settled. In-flight calls are
	// not cancelled, only no longer awaited. Zero waits indefinitely.
	MaxWait time.Duration

	// MinSuccessful is the minimum number of successful agents required
	// after fan-in. Defaults to 1.
	MinSuccessful int

	// Strategy selects the aggregation. Defaults to AggregateConcatenate.
	Strategy Aggregation

	// AggregateFunc combines outputs when Strategy is AggregateCustom.
	AggregateFunc func(outputs []string, steps []*types.ExecutionStep) (string, error)

	// Synthesizer, when set, receives the aggregate as input and its output
	// replaces the aggregate as the final result.
	Synthesizer *types.AgentSpec

	// RetryPolicy bounds per-agent retries. Nil fails fast.
	RetryPolicy *types.RetryPolicy
}

// Parallel fans the same input out to all agents concurrently and
// aggregates the outputs.
type Parallel struct {
	runner
	config ParallelConfig
}

// NewParallel creates a parallel runner over the given backend.
func NewParallel(backend types.ChatBackend, config ParallelConfig) (*Parallel, error) {
	if len(config.Agents) == 0 {
		return nil, &types.ConfigError{Kind: types.WorkflowParallel, Reason: "at least one agent is required"}
	}
	if config.Strategy == AggregateCustom && config.AggregateFunc == nil {
		return nil, &types.ConfigError{Kind: types.WorkflowParallel, Reason: "custom aggregation requires AggregateFunc"}
	}
	if config.MinSuccessful <= 0 {
		config.MinSuccessful = 1
	}

	exec := NewExecutor(backend).WithRetryPolicy(config.RetryPolicy)
	return &Parallel{
		runner: newRunner(exec, types.WorkflowParallel),
		config: config,
	}, nil
}

// settled is one agent's outcome, tagged with its input-order index.
type settled struct {
	index int
	step  *types.ExecutionStep
	err   error
}

// Execute fans out, joins per the wait policy, checks the success minimum
// and aggregates.
func (p *Parallel) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResult, error) {
	totalSteps := len(p.config.Agents)
	if p.config.Synthesizer != nil {
		totalSteps++
	}
	if err := p.begin(req.OnProgress, totalSteps); err != nil {
		return nil, err
	}

	input := req.initialInput()

	// The channel is buffered so abandoned goroutines can still settle and
	// exit after a bounded or raced join.
	ch := make(chan settled, len(p.config.Agents))
	for i, agent := range p.config.Agents {
		go func() {
			step, err := p.exec.RunAgentWithRetry(ctx, agent, input, req.ConversationID, req.OnProgress)
			ch <- settled{index: i, step: step, err: err}
		}()
	}

	results := make([]*settled, len(p.config.Agents))
	if p.config.FirstCompleted {
		select {
		case r := <-ch:
			results[r.index] = &r
		case <-ctx.Done():
			return p.fail(req.OnProgress, types.ErrCancelled)
		}
	} else {
		var deadline <-chan time.Time
		if p.config.MaxWait > 0 {
			timer := time.NewTimer(p.config.MaxWait)
			defer timer.Stop()
			deadline = timer.C
		}

	join:
		for pending := len(p.config.Agents); pending > 0; pending-- {
			select {
			case r := <-ch:
				results[r.index] = &r
			case <-deadline:
				// Proceed with partial results.
				break join
			case <-ctx.Done():
				return p.fail(req.OnProgress, types.ErrCancelled)
			}
		}
	}

	// Record settled steps and collect successes, both in input order.
	var (
		outputs  []string
		okSteps  []*types.ExecutionStep
		failures []error
	)
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.step != nil {
			p.record(r.step)
		}
		if r.err != nil {
			failures = append(failures, r.err)
			continue
		}
		outputs = append(outputs, r.step.Output)
		okSteps = append(okSteps, r.step)
	}

	if len(outputs) < p.config.MinSuccessful {
		return p.fail(req.OnProgress, &types.AggregateError{
			Succeeded: len(outputs),
			Required:  p.config.MinSuccessful,
			Launched:  len(p.config.Agents),
			Causes:    failures,
		})
	}

	aggregate, err := p.aggregate(outputs, okSteps)
	if err != nil {
		return p.fail(req.OnProgress, err)
	}

	if p.config.Synthesizer != nil {
		step, err := p.exec.RunAgentWithRetry(ctx, p.config.Synthesizer, aggregate, req.ConversationID, req.OnProgress)
		if step != nil {
			p.record(step)
		}
		if err != nil {
			return p.fail(req.OnProgress, err)
		}
		aggregate = step.Output
	}

	return p.complete(req.OnProgress, aggregate)
}

// aggregate combines successful outputs per the configured strategy.
func (p *Parallel) aggregate(outputs []string, steps []*types.ExecutionStep) (string, error) {
	switch p.config.Strategy {
	case AggregateVote:
		return majorityVote(outputs), nil

	case AggregateFirst:
		return outputs[0], nil

	case AggregateCustom:
		out, err := p.config.AggregateFunc(outputs, steps)
		if err != nil {
			return "", fmt.Errorf("custom aggregation: %w", err)
		}
		return out, nil

	default:
		sections := make([]string, len(steps))
		for i, step := range steps {
			sections[i] = fmt.Sprintf("## %s\n\n%s", step.AgentName, step.Output)
		}
		return strings.Join(sections, sectionSeparator), nil
	}
}

// majorityVote picks the most frequent output after trim and case folding.
// Ties resolve to the first-seen key in input order.
func majorityVote(outputs []string) string {
	counts := make(map[string]int, len(outputs))
	first := make(map[string]string, len(outputs))
	var order []string

	for _, output := range outputs {
		key := strings.ToLower(strings.TrimSpace(output))
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			first[key] = output
		}
		counts[key]++
	}

	winner := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[winner] {
			winner = key
		}
	}
	return first[winner]
}
