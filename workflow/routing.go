// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"

	"github.com/chatkit-ai/chatkit-go/types"
)

// RoutingConfig configures a [Routing] runner. It is validated once, at
// construction.
type RoutingConfig struct {
	// Router is the classifier agent. Required.
	Router *types.AgentSpec

	// Routes are the dispatch targets. At least one route or a Fallback is
	// required.
	Routes []*types.RouteSpec

	// Fallback is executed when no route matches. Without it, an empty
	// selection is an error.
	Fallback *types.AgentSpec

	// ClassificationPrompt overrides the default classification prompt
	// prefix shown to the router agent.
	ClassificationPrompt string

	// Selector, when set, fully overrides route selection.
	Selector func(input string, classification *types.Classification, routes []*types.RouteSpec) []*types.RouteSpec

	// AllowMultipleRoutes executes every selected route concurrently
	// instead of only the top one.
	AllowMultipleRoutes bool

	// MaxRoutes caps the selected routes. Zero means no cap.
	MaxRoutes int

	// IncludeExplanation prefixes the result with the routed-to names.
	IncludeExplanation bool

	// RetryPolicy bounds per-step retries. Nil fails fast.
	RetryPolicy *types.RetryPolicy
}

// Routing classifies the input with a router agent and dispatches to the
// matching routes, or a fallback agent.
type Routing struct {
	runner
	config RoutingConfig
	byID   map[string]*types.RouteSpec
}

// NewRouting creates a routing runner over the given backend.
func NewRouting(backend types.ChatBackend, config RoutingConfig) (*Routing, error) {
	if config.Router == nil {
		return nil, &types.ConfigError{Kind: types.WorkflowRouting, Reason: "a router agent is required"}
	}
	if len(config.Routes) == 0 && config.Fallback == nil {
		return nil, &types.ConfigError{Kind: types.WorkflowRouting, Reason: "at least one route or a fallback agent is required"}
	}
	byID := make(map[string]*types.RouteSpec, len(config.Routes))
	for _, route := range config.Routes {
		if route.Agent == nil {
			return nil, &types.ConfigError{Kind: types.WorkflowRouting, Reason: fmt.Sprintf("route %q has no target agent", route.ID)}
		}
		byID[route.ID] = route
	}

	exec := NewExecutor(backend).WithRetryPolicy(config.RetryPolicy)
	return &Routing{
		runner: newRunner(exec, types.WorkflowRouting),
		config: config,
		byID:   byID,
	}, nil
}

// Execute classifies, selects and dispatches.
func (r *Routing) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResult, error) {
	// Total step count is unknown until selection; begin with the router
	// step only and correct it after selection.
	if err := r.begin(req.OnProgress, 1); err != nil {
		return nil, err
	}

	input := req.initialInput()

	// Phase 1: classify.
	routerStep, err := r.exec.RunAgentWithRetry(ctx, r.config.Router, r.classificationInput(input), req.ConversationID, req.OnProgress)
	if routerStep != nil {
		r.record(routerStep)
	}
	if err != nil {
		return r.fail(req.OnProgress, err)
	}

	classification := parseClassification(routerStep.Output, r.config.Routes)
	r.setMeta("classification", classification)

	// Phase 2: select.
	selected := r.selectRoutes(input, classification)
	if len(selected) == 0 {
		if r.config.Fallback == nil {
			return r.fail(req.OnProgress, fmt.Errorf("no route matched classification %q and no fallback is configured", strings.TrimSpace(routerStep.Output)))
		}
		selected = []*types.RouteSpec{{
			ID:    "fallback",
			Name:  r.config.Fallback.Name,
			Agent: r.config.Fallback,
		}}
	}
	if r.config.MaxRoutes > 0 && len(selected) > r.config.MaxRoutes {
		selected = selected[:r.config.MaxRoutes]
	}
	if !r.config.AllowMultipleRoutes && len(selected) > 1 {
		selected = selected[:1]
	}

	r.mu.Lock()
	r.state.TotalSteps = 1 + len(selected)
	r.mu.Unlock()

	if err := r.cancelled(ctx); err != nil {
		return r.fail(req.OnProgress, err)
	}

	// Phase 3: execute.
	result, err := r.dispatch(ctx, req, input, selected)
	if err != nil {
		return r.fail(req.OnProgress, err)
	}

	if r.config.IncludeExplanation {
		names := make([]string, len(selected))
		for i, route := range selected {
			names[i] = route.Name
		}
		result = fmt.Sprintf("[Routed to: %s]\n\n%s", strings.Join(names, ", "), result)
	}

	return r.complete(req.OnProgress, result)
}

// classificationInput builds the router agent's prompt.
func (r *Routing) classificationInput(input string) string {
	prefix := r.config.ClassificationPrompt
	if prefix == "" {
		prefix = defaultClassificationPrompt(r.config.Routes)
	}
	return prefix + "\n\n" + input
}

// selectRoutes maps candidate route ids to declared routes, applies
// per-route conditions, and orders by descending priority (declaration
// order on ties). A configured Selector overrides all of it.
func (r *Routing) selectRoutes(input string, classification *types.Classification) []*types.RouteSpec {
	if r.config.Selector != nil {
		return r.config.Selector(input, classification, r.config.Routes)
	}

	var selected []*types.RouteSpec
	for _, id := range classification.RouteIDs {
		route, ok := r.byID[id]
		if !ok {
			continue
		}
		if route.Condition != nil && !route.Condition(input, classification) {
			continue
		}
		selected = append(selected, route)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority > selected[j].Priority
	})
	return selected
}

// dispatch executes the selected routes: one directly, several through an
// errgroup where any failure aborts the run.
func (r *Routing) dispatch(ctx context.Context, req *ExecuteRequest, input string, selected []*types.RouteSpec) (string, error) {
	if len(selected) == 1 {
		step, err := r.exec.RunAgentWithRetry(ctx, selected[0].Agent, input, req.ConversationID, req.OnProgress)
		if step != nil {
			r.record(step)
		}
		if err != nil {
			return "", err
		}
		return step.Output, nil
	}

	steps := make([]*types.ExecutionStep, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, route := range selected {
		g.Go(func() error {
			step, err := r.exec.RunAgentWithRetry(gctx, route.Agent, input, req.ConversationID, req.OnProgress)
			steps[i] = step
			return err
		})
	}
	err := g.Wait()

	// Record whatever settled, in route order, before deciding the outcome.
	for _, step := range steps {
		if step != nil {
			r.record(step)
		}
	}
	if err != nil {
		return "", err
	}

	sections := make([]string, len(selected))
	for i, route := range selected {
		sections[i] = fmt.Sprintf("## %s\n\n%s", route.Name, steps[i].Output)
	}
	return strings.Join(sections, sectionSeparator), nil
}

// jsonClassification is the accepted shape of a JSON router response:
// either {"routes": [...]} or {"route"|"category": ..., "reasoning"?,
// "confidence"?}.
type jsonClassification struct {
	Routes     []string `json:"routes"`
	Route      any      `json:"route"`
	Category   any      `json:"category"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
}

// parseClassification parses a router agent's output. JSON is tried first;
// non-string route values are rejected rather than propagated (malformed
// classifier output falls back to keyword matching). The fallback matches
// each route's id and trigger keywords as case-insensitive substrings of
// the output.
func parseClassification(raw string, routes []*types.RouteSpec) *types.Classification {
	classification := &types.Classification{Raw: raw}

	var parsed jsonClassification
	if err := sonic.ConfigFastest.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err == nil {
		classification.Reasoning = parsed.Reasoning
		classification.Confidence = parsed.Confidence

		if len(parsed.Routes) > 0 {
			classification.RouteIDs = dedupe(parsed.Routes)
			return classification
		}

		value := parsed.Route
		if value == nil {
			value = parsed.Category
		}
		if id, ok := value.(string); ok && id != "" {
			classification.RouteIDs = []string{id}
			return classification
		}
	}

	lower := strings.ToLower(raw)
	var ids []string
	for _, route := range routes {
		if strings.Contains(lower, strings.ToLower(route.ID)) {
			ids = append(ids, route.ID)
			continue
		}
		for _, keyword := range route.Keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				ids = append(ids, route.ID)
				break
			}
		}
	}
	classification.RouteIDs = dedupe(ids)
	return classification
}

// stripCodeFence unwraps a ```json ... ``` fenced block, if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
