// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"strings"
	"time"
)

// RetryPolicy bounds the retries of a single agent invocation. It is a
// value type passed into the executor up front and never mutated during a
// run.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// disables retrying.
	MaxRetries int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// Retryable is an allowlist of error-message substrings, matched
	// case-insensitively. Empty means every error is retryable.
	Retryable []string

	// Matcher, when set, fully overrides Retryable.
	Matcher func(error) bool
}

// ShouldRetry reports whether err is retryable under the policy.
func (p *RetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if p.Matcher != nil {
		return p.Matcher(err)
	}
	if len(p.Retryable) == 0 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range p.Retryable {
		if strings.Contains(msg, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
