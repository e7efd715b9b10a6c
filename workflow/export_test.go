// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

// Exported for tests in workflow_test.

var ParseClassificationForTest = parseClassification
