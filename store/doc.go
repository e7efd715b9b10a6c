// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

// Package store provides [types.ConversationService] implementations: an
// in-memory store for tests and ephemeral sessions, and a SQLite-backed
// store for persistence.
//
// Both deliver change notifications to subscribers after a mutation
// commits; subscribers deregister through the handle returned by
// Subscribe. Store instances are passed explicitly to their consumers;
// the package exports no default instance.
package store
