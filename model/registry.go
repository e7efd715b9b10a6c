// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"regexp"
	"sync"
)

// init registers the built-in model types.
func init() {
	RegisterModelType(
		[]string{
			`claude-.*`,
		},
		func(ctx context.Context, apiKey, modelName string) (Model, error) {
			return NewClaude(ctx, apiKey, modelName)
		},
	)

	RegisterModelType(
		[]string{
			`gemini-.*`,
		},
		func(ctx context.Context, apiKey, modelName string) (Model, error) {
			return NewGemini(ctx, apiKey, modelName)
		},
	)

	RegisterModelType(
		[]string{
			`gpt-.*`,
			`o\d.*`,
			`chatgpt-.*`,
		},
		func(ctx context.Context, apiKey, modelName string) (Model, error) {
			return NewOpenAI(ctx, apiKey, modelName)
		},
	)
}

// ModelCreatorFunc is a function type that creates a model instance.
type ModelCreatorFunc func(ctx context.Context, apiKey, modelName string) (Model, error)

// modelEntry represents a registry entry with a regex pattern and model creator function.
type modelEntry struct {
	pattern *regexp.Regexp
	creator ModelCreatorFunc
}

// Registry resolves model names to provider implementations based on regex
// patterns.
type Registry struct {
	mu         sync.RWMutex
	registry   []modelEntry
	cacheSize  int
	modelCache map[string]ModelCreatorFunc
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// GetRegistry returns the singleton registry instance.
func GetRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry(32)
	})
	return defaultRegistry
}

// NewRegistry creates a new model registry with the specified cache size.
func NewRegistry(cacheSize int) *Registry {
	return &Registry{
		registry:   make([]modelEntry, 0),
		cacheSize:  cacheSize,
		modelCache: make(map[string]ModelCreatorFunc),
	}
}

// Register registers a model pattern with a creator function.
// If the pattern already exists, it will be updated with the new creator.
func (r *Registry) Register(modelPattern string, creator ModelCreatorFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	regex, err := regexp.Compile(modelPattern)
	if err != nil {
		return fmt.Errorf("compile model pattern %q: %w", modelPattern, err)
	}

	for i, entry := range r.registry {
		if entry.pattern.String() == modelPattern {
			r.registry[i].creator = creator
			return nil
		}
	}

	r.registry = append(r.registry, modelEntry{
		pattern: regex,
		creator: creator,
	})
	return nil
}

// Resolve finds the appropriate model creator for the given model name.
// Uses regex pattern matching and caching for performance.
func (r *Registry) Resolve(modelName string) (ModelCreatorFunc, error) {
	r.mu.RLock()
	if creator, ok := r.modelCache[modelName]; ok {
		r.mu.RUnlock()
		return creator, nil
	}

	var matchedCreator ModelCreatorFunc
	for _, entry := range r.registry {
		if entry.pattern.MatchString(modelName) {
			matchedCreator = entry.creator
			break
		}
	}
	r.mu.RUnlock()

	if matchedCreator == nil {
		return nil, fmt.Errorf("model %s not found", modelName)
	}

	r.mu.Lock()
	if len(r.modelCache) >= r.cacheSize {
		// Simple eviction strategy - clear cache when full
		r.modelCache = make(map[string]ModelCreatorFunc)
	}
	r.modelCache[modelName] = matchedCreator
	r.mu.Unlock()

	return matchedCreator, nil
}

// NewModel creates a new model instance for the given model name.
func (r *Registry) NewModel(ctx context.Context, apiKey, modelName string) (Model, error) {
	creator, err := r.Resolve(modelName)
	if err != nil {
		return nil, err
	}

	return creator(ctx, apiKey, modelName)
}

// RegisterModel is a convenience function to register a model pattern on
// the singleton registry.
func RegisterModel(modelPattern string, creator ModelCreatorFunc) error {
	return GetRegistry().Register(modelPattern, creator)
}

// RegisterModelType registers multiple patterns for a single model creator.
func RegisterModelType(patterns []string, creator ModelCreatorFunc) {
	registry := GetRegistry()
	for _, pattern := range patterns {
		if err := registry.Register(pattern, creator); err != nil {
			panic(err)
		}
	}
}

// NewModel is a convenience function to create a new model instance from
// the singleton registry.
func NewModel(ctx context.Context, apiKey, modelName string) (Model, error) {
	return GetRegistry().NewModel(ctx, apiKey, modelName)
}
