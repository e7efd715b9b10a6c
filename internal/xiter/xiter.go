// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

// Package xiter contains additional stdlib [iter] types and functionality.
package xiter

import (
	"iter"
)

// Error returns an iterator that yields only the given error.
func Error[T any](err error) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		yield(nil, err)
	}
}
