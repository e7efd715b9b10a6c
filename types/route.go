// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

// Classification is the parsed output of a router agent.
type Classification struct {
	// RouteIDs are the candidate route identifiers, de-duplicated, in the
	// order the classifier produced them.
	RouteIDs []string `json:"routes"`

	// Reasoning and Confidence are optional fields from a JSON classifier
	// response.
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Raw retains the unparsed classifier output.
	Raw string `json:"raw"`
}

// RouteSpec declares one route a routing workflow can dispatch to.
type RouteSpec struct {
	// ID is the identifier the classifier is expected to produce.
	ID string

	// Name is the display name used in combined output and explanations.
	Name string

	// Description is shown to the router agent in the classification prompt.
	Description string

	// Keywords are trigger words matched against the classifier output when
	// it is not valid JSON.
	Keywords []string

	// Agent is the target agent executed when the route is selected.
	Agent *AgentSpec

	// Priority breaks ties between matched routes; higher wins. Equal
	// priorities keep declaration order.
	Priority int

	// Condition, when set, vetoes a matched route based on the raw input
	// and the full classification.
	Condition func(input string, classification *Classification) bool
}
