// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package types_test

import (
	"errors"
	"testing"

	"github.com/chatkit-ai/chatkit-go/types"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	tests := []struct {
		name   string
		policy types.RetryPolicy
		err    error
		want   bool
	}{
		{
			name:   "nil error never retries",
			policy: types.RetryPolicy{MaxRetries: 3},
			err:    nil,
			want:   false,
		},
		{
			name:   "empty allowlist retries everything",
			policy: types.RetryPolicy{MaxRetries: 3},
			err:    errors.New("boom"),
			want:   true,
		},
		{
			name:   "allowlist match is case-insensitive",
			policy: types.RetryPolicy{Retryable: []string{"rate limit"}},
			err:    errors.New("429: Rate Limit exceeded"),
			want:   true,
		},
		{
			name:   "allowlist miss",
			policy: types.RetryPolicy{Retryable: []string{"rate limit", "timeout"}},
			err:    errors.New("invalid api key"),
			want:   false,
		},
		{
			name: "matcher overrides allowlist",
			policy: types.RetryPolicy{
				Retryable: []string{"rate limit"},
				Matcher:   func(error) bool { return false },
			},
			err:  errors.New("rate limit"),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.ShouldRetry(tt.err); got != tt.want {
				t.Errorf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAggregateError_Message(t *testing.T) {
	cause := errors.New("provider unavailable")
	err := &types.AggregateError{Succeeded: 1, Required: 2, Launched: 3, Causes: []error{cause}}

	if got, want := err.Error(), "insufficient successful agents: 1/2 (launched 3)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}
